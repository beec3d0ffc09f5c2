package gateway

import "context"

// Department is one requester department.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is one requester user.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Department  string `json:"department"`
}

// CatalogItem is one orderable catalog entry.
type CatalogItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Supplier    string  `json:"supplier"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unitPrice"`
}

// Supplier is one supplier master record.
type Supplier struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}

// Departments fetches the department lookup list.
func (c *Client) Departments(ctx context.Context, token string) ([]Department, error) {
	var out []Department
	if err := c.Get(ctx, "/departments", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Users fetches the user lookup list.
func (c *Client) Users(ctx context.Context, token string) ([]User, error) {
	var out []User
	if err := c.Get(ctx, "/users", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CatalogItems fetches the catalog.
func (c *Client) CatalogItems(ctx context.Context, token string) ([]CatalogItem, error) {
	var out []CatalogItem
	if err := c.Get(ctx, "/catalog", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Suppliers fetches the supplier master list.
func (c *Client) Suppliers(ctx context.Context, token string) ([]Supplier, error) {
	var out []Supplier
	if err := c.Get(ctx, "/suppliers", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}
