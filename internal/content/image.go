package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const defaultImageCDN = "https://cdn.sanity.io"

// Rendition is a named output size. A zero dimension keeps the aspect ratio.
type Rendition struct {
	Name   string
	Width  int
	Height int
}

var (
	ArticleRenditions = []Rendition{
		{Name: "card", Width: 600, Height: 400},
		{Name: "hero", Width: 800, Height: 600},
		{Name: "og", Width: 1200, Height: 630},
		{Name: "full", Width: 1200},
	}
	PortfolioRenditions = []Rendition{
		{Name: "card", Width: 600, Height: 400},
		{Name: "hero", Width: 800, Height: 600},
		{Name: "detail", Width: 1200, Height: 800},
		{Name: "og", Width: 1200, Height: 630},
	}
	GalleryRenditions = []Rendition{{Name: "gallery", Width: 500, Height: 375}}
	AvatarRenditions  = []Rendition{{Name: "avatar", Width: 96, Height: 96}}
	BodyRenditions    = []Rendition{{Name: "body", Width: 800}}
)

var ErrInvalidImageRef = errors.New("invalid image reference")

// ImageAsset is a parsed asset reference of the form image-<id>-<w>x<h>-<ext>.
type ImageAsset struct {
	ID     string
	Width  int
	Height int
	Format string
}

func ParseImageRef(ref string) (ImageAsset, error) {
	parts := strings.Split(strings.TrimSpace(ref), "-")
	if len(parts) != 4 || parts[0] != "image" || parts[1] == "" || parts[3] == "" {
		return ImageAsset{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	dims := strings.SplitN(parts[2], "x", 2)
	if len(dims) != 2 {
		return ImageAsset{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	width, werr := strconv.Atoi(dims[0])
	height, herr := strconv.Atoi(dims[1])
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return ImageAsset{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	return ImageAsset{ID: parts[1], Width: width, Height: height, Format: parts[3]}, nil
}

// ImageURLBuilder turns asset references into CDN URLs. URL is a pure
// function of its inputs, so rendered URLs are safe cache keys.
type ImageURLBuilder struct {
	ProjectID string
	Dataset   string
	BaseURL   string
}

// URL returns the sized URL for ref, or "" when ref cannot be parsed.
func (b ImageURLBuilder) URL(ref string, width, height int) string {
	asset, err := ParseImageRef(ref)
	if err != nil {
		return ""
	}
	base := b.BaseURL
	if base == "" {
		base = defaultImageCDN
	}
	u := fmt.Sprintf("%s/images/%s/%s/%s-%dx%d.%s",
		strings.TrimRight(base, "/"),
		url.PathEscape(b.ProjectID),
		url.PathEscape(b.Dataset),
		asset.ID, asset.Width, asset.Height, asset.Format,
	)
	var params []string
	if width > 0 {
		params = append(params, "w="+strconv.Itoa(width))
	}
	if height > 0 {
		params = append(params, "h="+strconv.Itoa(height))
	}
	if len(params) == 0 {
		return u
	}
	return u + "?" + strings.Join(params, "&")
}

type rawImage struct {
	Asset *struct {
		Ref string `json:"_ref"`
		ID  string `json:"_id"`
	} `json:"asset"`
	Alt string `json:"alt"`
}

func (r rawImage) ref() string {
	if r.Asset == nil {
		return ""
	}
	if r.Asset.Ref != "" {
		return r.Asset.Ref
	}
	return r.Asset.ID
}

// resolveImage projects an embedded image. An image without a usable asset
// reference is treated as absent.
func (b ImageURLBuilder) resolveImage(raw json.RawMessage, renditions []Rendition) *Image {
	if isNull(raw) {
		return nil
	}
	var img rawImage
	if err := json.Unmarshal(raw, &img); err != nil {
		return nil
	}
	return b.image(img, renditions)
}

func (b ImageURLBuilder) image(img rawImage, renditions []Rendition) *Image {
	ref := img.ref()
	asset, err := ParseImageRef(ref)
	if err != nil {
		return nil
	}
	out := &Image{
		Ref:        ref,
		Alt:        img.Alt,
		Width:      asset.Width,
		Height:     asset.Height,
		Renditions: make(map[string]string, len(renditions)),
	}
	for _, r := range renditions {
		out.Renditions[r.Name] = b.URL(ref, r.Width, r.Height)
	}
	return out
}
