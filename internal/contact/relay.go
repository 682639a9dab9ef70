package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"blackbox/api/internal/email"
	"blackbox/api/internal/store"
)

const DefaultWeb3FormsURL = "https://api.web3forms.com/submit"

// Web3FormsRelay posts submissions to the Web3Forms API, which mails them
// to the address registered for the access key.
type Web3FormsRelay struct {
	AccessKey string
	Endpoint  string
	Subject   string
	FromName  string
	ToEmail   string
	Client    *http.Client
}

func (r *Web3FormsRelay) Name() string { return "web3forms" }

type web3FormsRequest struct {
	AccessKey string `json:"access_key"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Business  string `json:"business,omitempty"`
	Message   string `json:"message"`
	Subject   string `json:"subject,omitempty"`
	FromName  string `json:"from_name,omitempty"`
	ToEmail   string `json:"to_email,omitempty"`
}

type web3FormsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (r *Web3FormsRelay) Relay(ctx context.Context, sub store.Submission) error {
	payload := web3FormsRequest{
		AccessKey: r.AccessKey,
		Name:      sub.Name,
		Email:     sub.Email,
		Message:   sub.Message,
		Subject:   r.Subject,
		FromName:  r.FromName,
		ToEmail:   r.ToEmail,
	}
	if sub.Business != nil {
		payload.Business = *sub.Business
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = DefaultWeb3FormsURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var out web3FormsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("status %d: undecodable response", resp.StatusCode)
	}
	if !out.Success {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = "Failed to send message"
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// Mailer is the part of email.Service the SMTP relay needs.
type Mailer interface {
	IsConfigured() bool
	SendSubmissionNotification(to []string, data email.SubmissionData) error
}

// SMTPRelay mails submissions to the team inbox.
type SMTPRelay struct {
	Mailer   Mailer
	To       []string
	SiteName string
}

func (r *SMTPRelay) Name() string { return "smtp" }

func (r *SMTPRelay) Relay(ctx context.Context, sub store.Submission) error {
	if !r.Mailer.IsConfigured() || len(r.To) == 0 {
		return email.ErrNotConfigured
	}
	data := email.SubmissionData{
		SiteName:    r.SiteName,
		ID:          sub.ID,
		Name:        sub.Name,
		Email:       sub.Email,
		Message:     sub.Message,
		SubmittedAt: sub.SubmittedAt,
	}
	if sub.Business != nil {
		data.Business = *sub.Business
	}

	done := make(chan error, 1)
	go func() { done <- r.Mailer.SendSubmissionNotification(r.To, data) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MultiRelay delivers to every relay and fails if any of them fails.
type MultiRelay []Relay

func (m MultiRelay) Name() string {
	names := make([]string, 0, len(m))
	for _, r := range m {
		names = append(names, r.Name())
	}
	return strings.Join(names, "+")
}

func (m MultiRelay) Relay(ctx context.Context, sub store.Submission) error {
	var errs []error
	for _, r := range m {
		if err := r.Relay(ctx, sub); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
		}
	}
	return errors.Join(errs...)
}
