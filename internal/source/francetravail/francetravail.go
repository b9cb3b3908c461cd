package francetravail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/source"
)

const (
	tokenURL  = "https://entreprise.francetravail.fr/connexion/oauth2/access_token?realm=%2Fpartenaire"
	searchURL = "https://api.francetravail.io/partenaire/offresdemploi/v2/offres/search"
	scope     = "api_offresdemploiv2 o2dsoffre"

	// provider caps one page at 150 offers
	maxLimit = 150
)

type Config struct {
	ClientID     string
	ClientSecret string
}

type Connector struct {
	cfg     Config
	hc      *http.Client
	limiter *source.HostLimiter

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func New(cfg Config, limiter *source.HostLimiter) *Connector {
	return &Connector{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Connector) Name() string { return "francetravail" }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// bearerToken exchanges client credentials for an access token, cached until
// shortly before expiry. The API rejects unauthenticated search calls.
func (c *Connector) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", fmt.Errorf("francetravail client credentials not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", scope)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := c.limiter.WaitURL(ctx, tokenURL); err != nil {
		return "", err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("francetravail token: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return "", fmt.Errorf("francetravail token status %d", res.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("francetravail token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("francetravail token empty")
	}

	c.token = tok.AccessToken
	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 20 * time.Minute
	}
	c.tokenExp = time.Now().Add(ttl - 30*time.Second)
	return c.token, nil
}

type offer struct {
	ID         string `json:"id"`
	Intitule   string `json:"intitule"`
	Entreprise struct {
		Nom string `json:"nom"`
	} `json:"entreprise"`
	LieuTravail struct {
		Libelle string `json:"libelle"`
	} `json:"lieuTravail"`
	TypeContrat string `json:"typeContrat"`
	Contact     struct {
		Nom      string `json:"nom"`
		Courriel string `json:"courriel"`
	} `json:"contact"`
	OrigineOffre struct {
		URLOrigine string `json:"urlOrigine"`
	} `json:"origineOffre"`
}

type searchResponse struct {
	Resultats []offer `json:"resultats"`
}

func (c *Connector) Fetch(ctx context.Context, q source.Query) ([]domain.Job, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	params := url.Values{}
	if q.Title != "" {
		params.Set("motsCles", q.Title)
	}
	if code := contractCode(q.ContractType); code != "" {
		params.Set("typeContrat", code)
	}
	params.Set("range", fmt.Sprintf("0-%d", limit-1))

	u := searchURL + "?" + params.Encode()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.WaitURL(ctx, u); err != nil {
		return nil, err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("francetravail search: %w", err)
	}
	defer res.Body.Close()
	// 204/206 mean empty or partial range, both fine
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("francetravail search status %d", res.StatusCode)
	}
	if res.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("francetravail decode: %w", err)
	}

	out := make([]domain.Job, 0, len(sr.Resultats))
	for _, o := range sr.Resultats {
		if o.ID == "" || strings.TrimSpace(o.Intitule) == "" {
			continue
		}
		out = append(out, domain.Job{
			ExternalID:   "francetravail:" + o.ID,
			Source:       c.Name(),
			CompanyName:  strings.TrimSpace(o.Entreprise.Nom),
			Title:        strings.TrimSpace(o.Intitule),
			Location:     strings.TrimSpace(o.LieuTravail.Libelle),
			ContractType: domain.ContractFromSource(c.Name(), o.TypeContrat),
			TargetEmail:  strings.TrimSpace(o.Contact.Courriel),
			TargetURL:    strings.TrimSpace(o.OrigineOffre.URLOrigine),
		})
	}
	return out, nil
}

func contractCode(ct domain.ContractType) string {
	switch ct {
	case domain.ContractPermanent:
		return "CDI"
	case domain.ContractFixedTerm, domain.ContractStudentJob:
		return "CDD"
	case domain.ContractInterim:
		return "MIS"
	default:
		// internships and apprenticeships are carried by natureContrat,
		// not typeContrat; leave the filter to the matcher
		return ""
	}
}
