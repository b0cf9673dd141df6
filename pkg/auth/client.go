package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ROR44/firebase-admin-go/pkg/apierror"
	"github.com/ROR44/firebase-admin-go/pkg/transport"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

const (
	defaultEndpoint = "https://identitytoolkit.googleapis.com/v1"

	// page size cap of the accounts:batchGet endpoint
	maxListUsersResults = 1000
)

// Client reads Firebase Auth accounts through the identitytoolkit REST
// API. Safe for concurrent use.
type Client struct {
	transport *transport.Client
	baseURL   string
	logger    *zap.Logger
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithEndpoint overrides the identitytoolkit endpoint. For tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.baseURL = endpoint }
}

func NewClient(tr *transport.Client, projectID string, opts ...Option) (*Client, error) {

	if tr == nil {
		return nil, errors.New("transport must not be nil")
	}
	if projectID == "" {
		return nil, errors.New("project id is required")
	}

	c := &Client{
		transport: tr,
		baseURL:   defaultEndpoint,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.baseURL += "/projects/" + url.PathEscape(projectID)

	return c, nil
}

// GetUser fetches one account by UID. A missing account is a NotFound
// classified error.
func (c *Client) GetUser(ctx context.Context, uid string) (*UserRecord, error) {

	if uid == "" {
		return nil, errors.New("uid must not be empty")
	}

	req := transport.NewJSONRequest(http.MethodPost, c.baseURL+"/accounts:lookup",
		map[string][]string{"localId": {uid}})

	res, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, apierror.FromResponse(res.StatusCode, res.Body)
	}

	var out struct {
		Users []*wireUser `json:"users"`
	}
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return nil, errors.Wrap(err, "decode lookup response")
	}

	if len(out.Users) == 0 {
		return nil, &apierror.Error{
			Kind:    apierror.NotFound,
			Message: "no user record found for uid: " + uid,
		}
	}

	return out.Users[0].exported().UserRecord, nil
}

// Users returns an iterator over all accounts of the project, in the
// backend's export order. Pass an empty nextPageToken to start from the
// beginning; a token from a previous iterator's PageInfo resumes there.
func (c *Client) Users(ctx context.Context, nextPageToken string) *UserIterator {

	it := &UserIterator{
		ctx:    ctx,
		client: c,
	}

	it.pageInfo, it.nextFunc = iterator.NewPageInfo(
		it.fetch,
		func() int { return len(it.users) },
		func() interface{} {
			b := it.users
			it.users = nil
			return b
		})
	it.pageInfo.MaxSize = maxListUsersResults
	it.pageInfo.Token = nextPageToken

	return it
}

// UserIterator walks the account pages. It follows the
// google.golang.org/api/iterator guidelines, so it works with
// iterator.NewPager as well.
type UserIterator struct {
	client   *Client
	ctx      context.Context
	pageInfo *iterator.PageInfo
	nextFunc func() error
	users    []*ExportedUserRecord
}

// PageInfo supports pagination.
func (it *UserIterator) PageInfo() *iterator.PageInfo {
	return it.pageInfo
}

// Next returns the next account. It returns iterator.Done when there
// are no more; once Next returns Done, all later calls return Done.
func (it *UserIterator) Next() (*ExportedUserRecord, error) {

	if err := it.nextFunc(); err != nil {
		return nil, err
	}

	user := it.users[0]
	it.users = it.users[1:]

	return user, nil
}

// listResponse is the accounts:batchGet page shape.
type listResponse struct {
	Users         []*wireUser `json:"users"`
	NextPageToken string      `json:"nextPageToken"`
}

func (it *UserIterator) fetch(pageSize int, pageToken string) (string, error) {

	if pageSize <= 0 || pageSize > maxListUsersResults {
		pageSize = maxListUsersResults
	}

	query := make(url.Values)
	query.Set("maxResults", strconv.Itoa(pageSize))
	if pageToken != "" {
		query.Set("nextPageToken", pageToken)
	}

	res, err := it.client.transport.Do(it.ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    it.client.baseURL + "/accounts:batchGet?" + query.Encode(),
	})
	if err != nil {
		return "", err
	}

	if res.StatusCode != http.StatusOK {
		err := apierror.FromResponse(res.StatusCode, res.Body)
		it.client.logger.Error("list users", zap.Error(err))
		return "", err
	}

	var page listResponse
	if err := json.Unmarshal(res.Body, &page); err != nil {
		return "", errors.Wrap(err, "decode users page")
	}

	for _, user := range page.Users {
		it.users = append(it.users, user.exported())
	}

	return page.NextPageToken, nil
}
