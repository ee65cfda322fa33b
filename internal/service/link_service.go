package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"regexp"
	"strings"

	"github.com/maheshrc27/liveflow/internal/metrics"
	"github.com/maheshrc27/liveflow/internal/models"
	"github.com/maheshrc27/liveflow/internal/repository"
	"github.com/maheshrc27/liveflow/pkg/logging"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	shortCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	shortCodeLength   = 7
	shortCodeAttempts = 5
)

const (
	DecisionRedirect = "redirect"
	DecisionPreview  = "preview"
)

var crawlerUA = regexp.MustCompile(`(?i)(facebookexternalhit|facebot|twitterbot|slackbot|slack-imgproxy|discordbot|linkedinbot|telegrambot|whatsapp|pinterest|redditbot|embedly|skypeuripreview|vkshare|mastodon|bluesky|cardyb|iframely|applebot)`)

type LinkOptions struct {
	CampaignID *string
	StreamID   *int64
	HasMedia   bool
}

type RequestMeta struct {
	UserAgent string
	Referrer  string
}

type PreviewPage struct {
	Title       string
	Description string
	Image       string
	Canonical   string
	RedirectTo  string
}

type RedirectDecision struct {
	Kind     string
	Location string
	LinkID   int64
	Preview  *PreviewPage
}

type LinkService interface {
	CreateShortLink(ctx context.Context, ownerID int64, targetURL string, opts LinkOptions) (*models.Link, error)
	ShortURL(code string) string
	Resolve(ctx context.Context, code string, meta RequestMeta) (*RedirectDecision, error)
	ClickCount(ctx context.Context, ownerID, deliveryID int64) (int64, error)
}

type linkService struct {
	lr      repository.LinkRepository
	cr      repository.ClickRepository
	sr      repository.StreamRepository
	dr      repository.DraftRepository
	delr    repository.DeliveryRepository
	clicks  ClickSink
	allow   *AllowList
	baseURL string
	logger  logging.Logger
}

func NewLinkService(
	lr repository.LinkRepository,
	cr repository.ClickRepository,
	sr repository.StreamRepository,
	dr repository.DraftRepository,
	delr repository.DeliveryRepository,
	clicks ClickSink,
	allow *AllowList,
	baseURL string,
	logger logging.Logger) LinkService {
	return &linkService{
		lr:      lr,
		cr:      cr,
		sr:      sr,
		dr:      dr,
		delr:    delr,
		clicks:  clicks,
		allow:   allow,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (s *linkService) CreateShortLink(ctx context.Context, ownerID int64, targetURL string, opts LinkOptions) (*models.Link, error) {
	if _, err := s.allow.Check(targetURL); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < shortCodeAttempts; attempt++ {
		code, err := gonanoid.Generate(shortCodeAlphabet, shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate short code: %w", err)
		}

		link := &models.Link{
			OwnerID:    ownerID,
			ShortCode:  code,
			TargetURL:  targetURL,
			CampaignID: opts.CampaignID,
			StreamID:   opts.StreamID,
			HasMedia:   opts.HasMedia,
		}
		created, err := s.lr.Create(ctx, link)
		if err != nil {
			return nil, fmt.Errorf("create short link: %w", err)
		}
		if created {
			return link, nil
		}
		s.logger.WithFields(logging.Fields{"owner_id": ownerID, "attempt": attempt + 1}).Debug("short code collision")
	}

	s.logger.WithFields(logging.Fields{"owner_id": ownerID}).Error("short code space exhausted")
	return nil, ErrShortCodeExhausted
}

func (s *linkService) ShortURL(code string) string {
	return s.baseURL + "/s/" + code
}

func (s *linkService) Resolve(ctx context.Context, code string, meta RequestMeta) (*RedirectDecision, error) {
	link, err := s.lr.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup short link: %w", err)
	}
	if link == nil {
		metrics.Redirects.WithLabelValues("not_found").Inc()
		return nil, ErrLinkNotFound
	}

	location, err := s.allow.Check(link.TargetURL)
	if err != nil {
		metrics.Redirects.WithLabelValues("denied").Inc()
		s.logger.WithFields(logging.Fields{"code": code, "target": link.TargetURL}).Warn("refusing redirect to disallowed target")
		return nil, err
	}

	if IsCrawler(meta.UserAgent) && link.StreamID != nil && !link.HasMedia {
		page, err := s.previewFor(ctx, link, location)
		if err != nil {
			s.logger.WithFields(logging.Fields{"code": code, "error": err}).Warn("preview unavailable, redirecting")
		} else {
			metrics.Redirects.WithLabelValues("preview").Inc()
			return &RedirectDecision{Kind: DecisionPreview, Location: location, LinkID: link.ID, Preview: page}, nil
		}
	}

	s.clicks.Record(link.ID, meta)
	metrics.Redirects.WithLabelValues("redirect").Inc()
	return &RedirectDecision{Kind: DecisionRedirect, Location: location, LinkID: link.ID}, nil
}

func (s *linkService) previewFor(ctx context.Context, link *models.Link, location string) (*PreviewPage, error) {
	stream, err := s.sr.GetByOwner(ctx, link.OwnerID, *link.StreamID)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, ErrStreamNotFound
	}

	page := &PreviewPage{
		Title:       stream.Title,
		Description: fmt.Sprintf("%s is live now", stream.Title),
		Canonical:   location,
		RedirectTo:  location,
	}
	draft, err := s.dr.GetByStreamID(ctx, stream.ID)
	if err == nil && draft != nil && draft.ImageURL != nil {
		page.Image = *draft.ImageURL
	}
	return page, nil
}

func (s *linkService) ClickCount(ctx context.Context, ownerID, deliveryID int64) (int64, error) {
	delivery, err := s.delr.GetByID(ctx, ownerID, deliveryID)
	if err != nil {
		return 0, fmt.Errorf("load delivery: %w", err)
	}
	if delivery == nil {
		return 0, ErrDeliveryNotFound
	}
	if delivery.LinkID == nil {
		return 0, nil
	}
	return s.cr.CountByLink(ctx, ownerID, *delivery.LinkID)
}

// IsCrawler reports whether the user agent belongs to a link preview bot.
func IsCrawler(userAgent string) bool {
	return userAgent != "" && crawlerUA.MatchString(userAgent)
}

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta property="og:type" content="website">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
{{- if .Image}}
<meta property="og:image" content="{{.Image}}">
<meta name="twitter:card" content="summary_large_image">
{{- else}}
<meta name="twitter:card" content="summary">
{{- end}}
<meta property="og:url" content="{{.Canonical}}">
<link rel="canonical" href="{{.Canonical}}">
<meta http-equiv="refresh" content="{{.Refresh}}">
</head>
<body>
<p><a href="{{.RedirectTo}}">{{.Title}}</a></p>
</body>
</html>
`))

// RenderPreview renders the crawler document for a preview decision.
func RenderPreview(p *PreviewPage) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil preview")
	}
	var buf bytes.Buffer
	data := struct {
		Title, Description, Image, Canonical, RedirectTo, Refresh string
	}{p.Title, p.Description, p.Image, p.Canonical, p.RedirectTo, "2;url=" + p.RedirectTo}
	if err := previewTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return buf.Bytes(), nil
}

// AllowList decides which redirect targets the redirector may forward to.
type AllowList struct {
	domains []string
	base    *url.URL
}

func NewAllowList(domains []string, publicBaseURL string) (*AllowList, error) {
	base, err := url.Parse(publicBaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid public base url %q", publicBaseURL)
	}
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &AllowList{domains: normalized, base: base}, nil
}

// Check returns the absolute URL to redirect to, or ErrRedirectNotAllowed.
// Relative targets resolve against the public base URL.
func (a *AllowList) Check(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" || strings.ContainsAny(target, "\\\r\n\t") {
		return "", ErrRedirectNotAllowed
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", ErrRedirectNotAllowed
	}
	if u.User != nil {
		return "", ErrRedirectNotAllowed
	}
	if u.Scheme == "" && u.Host == "" {
		return a.base.ResolveReference(u).String(), nil
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrRedirectNotAllowed
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrRedirectNotAllowed
	}

	if scheme == strings.ToLower(a.base.Scheme) && strings.EqualFold(u.Host, a.base.Host) {
		return u.String(), nil
	}
	for _, d := range a.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return u.String(), nil
		}
	}
	return "", ErrRedirectNotAllowed
}
