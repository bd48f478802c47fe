package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"equipment_loan_tool/inventory"
	"equipment_loan_tool/models"

	"github.com/go-resty/resty/v2"
)

// envelope is the response shape of the inventory REST API.
type envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client mirrors materials and loans to the federation REST API.
type Client struct {
	client *resty.Client
}

var _ inventory.Store = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		client: resty.New().
			SetTimeout(timeout).
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	req := c.client.R().SetContext(ctx)
	if body != nil {
		req = req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	var env envelope
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &env); err != nil && resp.IsSuccess() {
			return fmt.Errorf("%s %s: decode envelope: %w", method, path, err)
		}
	}
	if !resp.IsSuccess() {
		if env.Error != "" {
			return errors.New(env.Error)
		}
		return fmt.Errorf("HTTP error! status: %d", resp.StatusCode())
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", method, path, err)
	}
	return nil
}

func (c *Client) ListMaterials(ctx context.Context) ([]models.Material, error) {
	var ms []models.Material
	if err := c.do(ctx, http.MethodGet, "/materials", nil, &ms); err != nil {
		return nil, err
	}
	return ms, nil
}

func (c *Client) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	var m models.Material
	if err := c.do(ctx, http.MethodGet, "/materials/"+id, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) CreateMaterial(ctx context.Context, m models.Material) error {
	return c.do(ctx, http.MethodPost, "/materials", m, nil)
}

func (c *Client) UpdateMaterial(ctx context.Context, m models.Material) error {
	return c.do(ctx, http.MethodPut, "/materials/"+m.ID, m, nil)
}

func (c *Client) DeleteMaterial(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/materials/"+id, nil, nil)
}

func (c *Client) ListLoans(ctx context.Context) ([]models.Loan, error) {
	var ls []models.Loan
	if err := c.do(ctx, http.MethodGet, "/loans", nil, &ls); err != nil {
		return nil, err
	}
	return ls, nil
}

func (c *Client) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	if err := c.do(ctx, http.MethodGet, "/loans/"+id, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) CreateLoan(ctx context.Context, l models.Loan) error {
	return c.do(ctx, http.MethodPost, "/loans", l, nil)
}

func (c *Client) UpdateLoan(ctx context.Context, l models.Loan) error {
	return c.do(ctx, http.MethodPut, "/loans/"+l.ID, l, nil)
}

func (c *Client) DeleteLoan(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/loans/"+id, nil, nil)
}

// OpenLoan writes the loan then the material. The API has no transaction,
// so a failure on the second call leaves the loan without its bookkeeping.
func (c *Client) OpenLoan(ctx context.Context, l models.Loan, m models.Material) error {
	if err := c.CreateLoan(ctx, l); err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	if err := c.UpdateMaterial(ctx, m); err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}

func (c *Client) CloseLoan(ctx context.Context, l models.Loan, m *models.Material) error {
	if err := c.UpdateLoan(ctx, l); err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if m == nil {
		return nil
	}
	if err := c.UpdateMaterial(ctx, *m); err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return nil
}
