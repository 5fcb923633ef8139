// Package client talks to the schedule API over HTTP.
package client

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

	"github.com/festival-planner/app/internal/log"
	"github.com/festival-planner/app/internal/models"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict reports whether err is a 409 from the API.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL (including /api).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// NewWithHTTPClient is New with a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	log.Debug("api call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)); json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw, err = io.ReadAll(resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func dayQuery(day string) url.Values {
	if day == "" {
		return nil
	}
	return url.Values{"date": []string{day}}
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

// Users lists every profile, ordered by name.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, http.MethodGet, "/users", nil, nil, &users)
	return users, err
}

// CreateUser registers a profile.
func (c *Client) CreateUser(ctx context.Context, name string) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodPost, "/users", nil, map[string]string{"name": name}, &user)
	return user, err
}

// User fetches one profile.
func (c *Client) User(ctx context.Context, userID int64) (models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, "/users/"+id(userID), nil, nil, &user)
	return user, err
}

// FestivalDays lists the days that have sets.
func (c *Client) FestivalDays(ctx context.Context) ([]models.FestivalDay, error) {
	var days []models.FestivalDay
	err := c.do(ctx, http.MethodGet, "/festival-days", nil, nil, &days)
	return days, err
}

// Sets returns the lineup of one day, or all sets when day is "".
func (c *Client) Sets(ctx context.Context, day string) ([]models.Set, error) {
	var sets []models.Set
	err := c.do(ctx, http.MethodGet, "/sets", dayQuery(day), nil, &sets)
	return sets, err
}

// Set fetches one set.
func (c *Client) Set(ctx context.Context, setID int64) (models.Set, error) {
	var set models.Set
	err := c.do(ctx, http.MethodGet, "/sets/"+id(setID), nil, nil, &set)
	return set, err
}

// SetAttendees lists the users who selected a set.
func (c *Client) SetAttendees(ctx context.Context, setID int64) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, http.MethodGet, "/sets/"+id(setID)+"/users", nil, nil, &users)
	return users, err
}

// AttendeeCounts returns the per-set counts for a day in one request.
func (c *Client) AttendeeCounts(ctx context.Context, day string) (models.AttendeeCounts, error) {
	var raw map[string]int
	if err := c.do(ctx, http.MethodGet, "/sets/attendee-counts", dayQuery(day), nil, &raw); err != nil {
		return nil, err
	}
	return models.ParseAttendeeCounts(raw), nil
}

// UserSelections returns the sets a user selected, optionally for one day.
func (c *Client) UserSelections(ctx context.Context, userID int64, day string) ([]models.Set, error) {
	var sets []models.Set
	err := c.do(ctx, http.MethodGet, "/users/"+id(userID)+"/selections", dayQuery(day), nil, &sets)
	return sets, err
}

// UserCalendar downloads a user's schedule as iCalendar data.
func (c *Client) UserCalendar(ctx context.Context, userID int64) ([]byte, error) {
	var data []byte
	err := c.do(ctx, http.MethodGet, "/users/"+id(userID)+"/selections.ics", nil, nil, &data)
	return data, err
}

// CreateSelection marks a set as selected. A duplicate yields an APIError
// for which IsConflict is true.
func (c *Client) CreateSelection(ctx context.Context, userID, setID int64) (models.Selection, error) {
	var sel models.Selection
	body := map[string]int64{"user_id": userID, "set_id": setID}
	err := c.do(ctx, http.MethodPost, "/selections", nil, body, &sel)
	return sel, err
}

// DeleteSelection removes a selection. A missing one yields an APIError for
// which IsNotFound is true.
func (c *Client) DeleteSelection(ctx context.Context, userID, setID int64) error {
	return c.do(ctx, http.MethodDelete, "/users/"+id(userID)+"/selections/"+id(setID), nil, nil, nil)
}

// Selections lists every selection of every user.
func (c *Client) Selections(ctx context.Context) ([]models.Selection, error) {
	var sels []models.Selection
	err := c.do(ctx, http.MethodGet, "/selections", nil, nil, &sels)
	return sels, err
}
