package email

import (
	"net/smtp"
	"strings"
	"testing"
	"time"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestSendSubmissionNotification(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	svc := NewService(Config{
		Host:     "smtp.example.com",
		Port:     "587",
		From:     "site@blkboxlogic.com",
		FromName: "Blackbox Logic Website",
	}).WithSender(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	})

	err := svc.SendSubmissionNotification([]string{"team@blkboxlogic.com"}, SubmissionData{
		SiteName:    "Blackbox Logic",
		ID:          7,
		Name:        "Pat O'Neil",
		Email:       "pat@example.com",
		Business:    "Pat's Pies",
		Message:     "We need <online> ordering.",
		SubmittedAt: time.Date(2024, 6, 1, 15, 4, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("SendSubmissionNotification() error = %v", err)
	}

	if gotAddr != "smtp.example.com:587" || gotFrom != "site@blkboxlogic.com" {
		t.Fatalf("unexpected envelope: addr=%s from=%s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "team@blkboxlogic.com" {
		t.Fatalf("unexpected recipients: %v", gotTo)
	}
	for _, want := range []string{
		"From: Blackbox Logic Website <site@blkboxlogic.com>\r\n",
		"Reply-To: pat@example.com\r\n",
		"Subject: New contact form submission from Pat O'Neil\r\n",
		"Business: Pat's Pies",
		"We need &lt;online&gt; ordering.",
		"Jun 1, 2024 at 3:04 PM UTC",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	called := false
	svc := NewService(Config{}).WithSender(func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	})
	if err := svc.SendSubmissionNotification([]string{"x@example.com"}, SubmissionData{Name: "A"}); err != ErrNotConfigured {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
	if called {
		t.Fatal("sender should not run when unconfigured")
	}
}

func TestSubjectCannotInjectHeaders(t *testing.T) {
	if got := sanitizeHeader("hi\r\nBcc: evil@example.com"); strings.ContainsAny(got, "\r\n") {
		t.Fatalf("sanitizeHeader left line breaks: %q", got)
	}
}
