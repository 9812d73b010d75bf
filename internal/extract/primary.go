package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"instaguard/internal/models"
)

const (
	sessionCookie    = "sessionid"
	profileInfoPath  = "/api/v1/users/web_profile_info/"
	sessionKeyPrefix = "primary:session:"
)

// defaultPicMarkers identify the placeholder avatar in a profile picture URL.
var defaultPicMarkers = []string{
	"blank",
	"44884218_345707102882519_2446069589734326272_n",
}

var (
	errLoginFailed     = errors.New("login rejected")
	errSessionRejected = errors.New("session rejected")
)

// Account is one credential pair for the primary source.
type Account struct {
	Username string
	Password string
}

// PrimaryConfig configures the primary client.
type PrimaryConfig struct {
	BaseURL    string // e.g. https://www.instagram.com
	LoginURL   string // defaults to BaseURL + /accounts/login/ajax/
	AppID      string
	UserAgent  string
	Accounts   []Account
	SessionTTL time.Duration
}

// PrimaryClient fetches full profiles through an authenticated session,
// rotating through the configured accounts until one works.
type PrimaryClient struct {
	cfg      PrimaryConfig
	client   *http.Client
	sessions SessionCache
}

// NewPrimaryClient creates a primary client. A nil sessions cache gets an
// in-memory one.
func NewPrimaryClient(cfg PrimaryConfig, client *http.Client, sessions SessionCache) *PrimaryClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.LoginURL == "" {
		cfg.LoginURL = cfg.BaseURL + "/accounts/login/ajax/"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if sessions == nil {
		sessions = NewMemoryCache()
	}
	return &PrimaryClient{cfg: cfg, client: client, sessions: sessions}
}

// Fetch returns the full signal set for username. ErrProfileNotExist means
// the source answered that the account does not exist.
func (p *PrimaryClient) Fetch(ctx context.Context, username string) (models.SignalSet, error) {
	tried := 0
	for _, acct := range p.cfg.Accounts {
		if acct.Username == "" || acct.Password == "" {
			continue
		}
		tried++

		token, err := p.session(ctx, acct)
		if err != nil {
			slog.Warn("primary login failed", "account", acct.Username, "error", err)
			continue
		}

		prof, err := p.fetchProfile(ctx, token, username)
		if errors.Is(err, errSessionRejected) {
			_ = p.sessions.Delete(sessionKeyPrefix + acct.Username)
			slog.Warn("primary session rejected, rotating account", "account", acct.Username)
			continue
		}
		if err != nil {
			return models.SignalSet{}, err
		}
		return prof.signals(username), nil
	}

	if tried == 0 {
		return models.SignalSet{}, fmt.Errorf("%w: no credentials configured", ErrPrimaryUnavailable)
	}
	return models.SignalSet{}, fmt.Errorf("%w: all %d accounts failed", ErrPrimaryUnavailable, tried)
}

// Warm makes sure at least one account holds a usable session.
func (p *PrimaryClient) Warm(ctx context.Context) error {
	for _, acct := range p.cfg.Accounts {
		if acct.Username == "" || acct.Password == "" {
			continue
		}
		if _, err := p.session(ctx, acct); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: no account could log in", ErrPrimaryUnavailable)
}

func (p *PrimaryClient) session(ctx context.Context, acct Account) (string, error) {
	key := sessionKeyPrefix + acct.Username
	if b, err := p.sessions.Get(key); err == nil && len(b) > 0 {
		return string(b), nil
	}

	token, err := p.login(ctx, acct)
	if err != nil {
		return "", err
	}
	if err := p.sessions.Set(key, []byte(token), p.cfg.SessionTTL); err != nil {
		slog.Warn("failed to cache primary session", "account", acct.Username, "error", err)
	}
	return token, nil
}

type loginResponse struct {
	Authenticated bool   `json:"authenticated"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

func (p *PrimaryClient) login(ctx context.Context, acct Account) (string, error) {
	form := url.Values{
		"username": {acct.Username},
		"password": {acct.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var lr loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&lr); err != nil {
		return "", fmt.Errorf("%w: status %d", errLoginFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !lr.Authenticated {
		return "", fmt.Errorf("%w: status %d %s", errLoginFailed, resp.StatusCode, lr.Message)
	}

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("%w: no session cookie", errLoginFailed)
}

type count struct {
	Count int64 `json:"count"`
}

type profile struct {
	Biography         string `json:"biography"`
	ExternalURL       string `json:"external_url"`
	FullName          string `json:"full_name"`
	IsBusinessAccount bool   `json:"is_business_account"`
	ProfilePicURL     string `json:"profile_pic_url"`
	EdgeFollowedBy    count  `json:"edge_followed_by"`
	EdgeFollow        count  `json:"edge_follow"`
	EdgeMedia         count  `json:"edge_owner_to_timeline_media"`
}

type profileResponse struct {
	Data struct {
		User *profile `json:"user"`
	} `json:"data"`
}

func (p *PrimaryClient) fetchProfile(ctx context.Context, token, username string) (*profile, error) {
	target := p.cfg.BaseURL + profileInfoPath + "?username=" + url.QueryEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrimaryUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrProfileNotExist
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errSessionRejected
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrPrimaryUnavailable, resp.StatusCode)
	}

	var pr profileResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: decoding profile: %v", ErrPrimaryUnavailable, err)
	}
	if pr.Data.User == nil {
		return nil, ErrProfileNotExist
	}
	return pr.Data.User, nil
}

func (p *PrimaryClient) setHeaders(req *http.Request) {
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}
	if p.cfg.AppID != "" {
		req.Header.Set("X-IG-App-ID", p.cfg.AppID)
	}
}

func (pr *profile) signals(username string) models.SignalSet {
	fullname := strings.TrimSpace(pr.FullName)
	return models.SignalSet{
		HasProfilePic:      hasCustomProfilePic(pr.ProfilePicURL),
		BioLength:          utf8.RuneCountInString(pr.Biography),
		Followers:          pr.EdgeFollowedBy.Count,
		Followees:          pr.EdgeFollow.Count,
		Posts:              pr.EdgeMedia.Count,
		FullnameWords:      len(strings.Fields(fullname)),
		NameEqualsUsername: strings.EqualFold(fullname, username),
		UsernameDigitRatio: DigitRatio(username),
		FullnameDigitRatio: DigitRatio(pr.FullName),
		ExternalURL:        pr.ExternalURL != "",
		IsBusiness:         pr.IsBusinessAccount,
	}
}

func hasCustomProfilePic(u string) bool {
	if u == "" {
		return false
	}
	for _, m := range defaultPicMarkers {
		if strings.Contains(u, m) {
			return false
		}
	}
	return true
}
