package webling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/esportubt/discord-bot/internal/config"
	"github.com/esportubt/discord-bot/internal/directory/domain"
)

const defaultTimeout = 30 * time.Second

// Client talks to the Webling membership API. It implements
// domain.Directory; all query-language details live here.
type Client struct {
	baseURL      string
	apiKey       string
	groupIDs     []int64
	idProp       string
	usernameProp string
	http         *http.Client
	log          *zap.Logger
}

func New(cfg config.DirectoryConfig, log *zap.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://" + strings.TrimSpace(cfg.BaseDomain) + ".webling.ch/api/1"
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		groupIDs:     cfg.GroupIDs,
		idProp:       cfg.IDProperty,
		usernameProp: cfg.UsernameProperty,
		http:         &http.Client{Timeout: defaultTimeout},
		log:          log.Named("directory.webling"),
	}
}

type memberPayload struct {
	ID         int64          `json:"id"`
	Parents    []int64        `json:"parents"`
	Properties map[string]any `json:"properties"`
}

// FetchEligibleMembers runs the bulk filter query. The Webling filter
// endpoint has a history of returning malformed payloads for complex
// filters, so anything that is not a JSON array is treated as an empty
// result.
func (c *Client) FetchEligibleMembers(ctx context.Context) ([]domain.MembershipRecord, error) {
	query := url.Values{}
	query.Set("filter", c.buildFilter())
	query.Set("format", "full")

	raw, err := c.get(ctx, "/member", query)
	if err != nil {
		return nil, err
	}

	var payload []memberPayload
	if err := decodeMembers(raw, &payload); err != nil {
		c.log.Warn("bulk member payload is not iterable, treating as empty",
			zap.Error(err))
		return nil, nil
	}

	records := make([]domain.MembershipRecord, 0, len(payload))
	for _, m := range payload {
		records = append(records, c.toRecord(m))
	}
	return records, nil
}

// FetchMemberByID returns (nil, nil) when the member no longer exists.
func (c *Client) FetchMemberByID(ctx context.Context, id int64) (*domain.MembershipRecord, error) {
	raw, err := c.get(ctx, "/member/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		var statusErr *domain.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var payload memberPayload
	if err := decodeMembers(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode member %d: %w", id, err)
	}
	if payload.ID == 0 {
		payload.ID = id
	}
	record := c.toRecord(payload)
	return &record, nil
}

// FetchChangedMemberIDs queries the change log. A response without a
// member change list means nothing relevant happened since the mark.
func (c *Client) FetchChangedMemberIDs(ctx context.Context, since time.Time) ([]int64, error) {
	raw, err := c.get(ctx, "/changes/"+strconv.FormatInt(since.Unix(), 10), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Objects map[string][]int64 `json:"objects"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.log.Warn("change log payload has unexpected shape, treating as empty",
			zap.Error(err))
		return nil, nil
	}
	ids := payload.Objects["member"]
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

// FetchGroupMemberIDs lists the raw children of one membership group.
func (c *Client) FetchGroupMemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	raw, err := c.get(ctx, "/membergroup/"+strconv.FormatInt(groupID, 10), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Children map[string][]int64 `json:"children"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode membergroup %d: %w", groupID, err)
	}
	return payload.Children["member"], nil
}

// buildFilter produces the server-side predicate: member of any eligible
// group AND at least one linked identity field present.
func (c *Client) buildFilter() string {
	groups := make([]string, 0, len(c.groupIDs))
	for _, id := range c.groupIDs {
		groups = append(groups, "$parents.$id = "+strconv.FormatInt(id, 10))
	}
	groupClause := strings.Join(groups, " OR ")
	if len(groups) > 1 {
		groupClause = "(" + groupClause + ")"
	}
	identityClause := fmt.Sprintf("(NOT `%s` IS EMPTY OR NOT `%s` IS EMPTY)", c.idProp, c.usernameProp)
	return groupClause + " AND " + identityClause
}

func (c *Client) toRecord(m memberPayload) domain.MembershipRecord {
	return domain.MembershipRecord{
		ID:              m.ID,
		Groups:          m.Parents,
		DiscordID:       propString(m.Properties[c.idProp]),
		DiscordUsername: propString(m.Properties[c.usernameProp]),
	}
}

// decodeMembers keeps untyped numbers as json.Number. Numeric id
// properties are Discord snowflakes; as float64 they lose the low bits.
func decodeMembers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// propString normalizes a Webling property value; numeric ids come back
// as JSON numbers depending on the field definition.
func propString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.StatusError{Status: resp.StatusCode, Endpoint: path}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read directory response from %s: %w", path, err)
	}
	return raw, nil
}
