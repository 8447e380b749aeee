package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"bazario-admin/internal/domain"
	"bazario-admin/internal/storage"
)

// The remaining endpoint groups are thin typed wrappers: the console's CRUD
// screens consume them directly, so they carry request/response shapes and
// nothing else.

// Tender is an auction listing.
type Tender struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CategoryID  string    `json:"categoryId"`
	StartPrice  float64   `json:"startPrice"`
	Status      string    `json:"status"`
	ClosesAt    time.Time `json:"closesAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Bid is a placed auction bid.
type Bid struct {
	ID        string    `json:"id"`
	TenderID  string    `json:"tenderId"`
	UserID    string    `json:"userId"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// TendersAPI wraps the tender/* and bid/* endpoint groups. Listing and
// reading tenders is public; everything else requires a session.
type TendersAPI struct {
	c *Client
}

func (t *TendersAPI) List(ctx context.Context) ([]*Tender, error) {
	var resp struct {
		Tenders []*Tender `json:"tenders"`
	}
	if err := t.c.Get(ctx, "/tender", &resp); err != nil {
		return nil, err
	}
	return resp.Tenders, nil
}

func (t *TendersAPI) Get(ctx context.Context, id string) (*Tender, error) {
	var resp struct {
		Tender *Tender `json:"tender"`
	}
	if err := t.c.Get(ctx, "/tender/"+id, &resp); err != nil {
		return nil, err
	}
	return resp.Tender, nil
}

func (t *TendersAPI) Create(ctx context.Context, tender *Tender) (*Tender, error) {
	var resp struct {
		Tender *Tender `json:"tender"`
	}
	if err := t.c.Post(ctx, "/tender", tender, &resp); err != nil {
		return nil, err
	}
	return resp.Tender, nil
}

func (t *TendersAPI) Update(ctx context.Context, tender *Tender) error {
	if tender.ID == "" {
		return domain.ErrInvalidInput
	}
	return t.c.Put(ctx, "/tender/"+tender.ID, tender, nil)
}

func (t *TendersAPI) Close(ctx context.Context, id string) error {
	return t.c.Put(ctx, "/tender/"+id+"/close", nil, nil)
}

func (t *TendersAPI) Bids(ctx context.Context, tenderID string) ([]*Bid, error) {
	var resp struct {
		Bids []*Bid `json:"bids"`
	}
	if err := t.c.Get(ctx, "/bid?tenderId="+tenderID, &resp); err != nil {
		return nil, err
	}
	return resp.Bids, nil
}

// DirectSale is a fixed-price listing.
type DirectSale struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	CategoryID  string  `json:"categoryId"`
	Price       float64 `json:"price"`
	Status      string  `json:"status"`
}

// SalesAPI wraps the direct-sale/* endpoint group.
type SalesAPI struct {
	c *Client
}

func (s *SalesAPI) List(ctx context.Context) ([]*DirectSale, error) {
	var resp struct {
		Sales []*DirectSale `json:"sales"`
	}
	if err := s.c.Get(ctx, "/direct-sale", &resp); err != nil {
		return nil, err
	}
	return resp.Sales, nil
}

func (s *SalesAPI) Create(ctx context.Context, sale *DirectSale) (*DirectSale, error) {
	var resp struct {
		Sale *DirectSale `json:"sale"`
	}
	if err := s.c.Post(ctx, "/direct-sale", sale, &resp); err != nil {
		return nil, err
	}
	return resp.Sale, nil
}

func (s *SalesAPI) Update(ctx context.Context, sale *DirectSale) error {
	if sale.ID == "" {
		return domain.ErrInvalidInput
	}
	return s.c.Put(ctx, "/direct-sale/"+sale.ID, sale, nil)
}

func (s *SalesAPI) Remove(ctx context.Context, id string) error {
	return s.c.Delete(ctx, "/direct-sale/"+id, nil)
}

// UploadPaymentProof attaches a payment proof image to a sale. A
// successful upload discards any staged proof and its pending flag.
func (s *SalesAPI) UploadPaymentProof(ctx context.Context, saleID, filename string, file io.Reader) error {
	fields := map[string]string{"saleId": saleID}
	if err := s.c.Upload(ctx, "/direct-sale/"+saleID+"/payment-proof", "file", filename, file, fields, nil); err != nil {
		return err
	}
	s.clearStagedProof()
	return nil
}

// Identity is a KYC record.
type Identity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	Document  string    `json:"document"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IdentitiesAPI wraps the identities/* endpoint group. Deployments that
// predate the rename still serve identity/*, so reads fall back to the
// legacy path on 404.
type IdentitiesAPI struct {
	c *Client
}

func (i *IdentitiesAPI) Get(ctx context.Context, userID string) (*Identity, error) {
	var resp struct {
		Identity *Identity `json:"identity"`
	}
	err := i.c.Get(ctx, "/identities/"+userID, &resp)
	if IsNotFound(err) {
		err = i.c.Get(ctx, "/identity/"+userID, &resp)
	}
	if err != nil {
		return nil, err
	}
	return resp.Identity, nil
}

func (i *IdentitiesAPI) List(ctx context.Context, status string) ([]*Identity, error) {
	path := "/identities"
	if status != "" {
		path += "?status=" + status
	}
	var resp struct {
		Identities []*Identity `json:"identities"`
	}
	if err := i.c.Get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Identities, nil
}

func (i *IdentitiesAPI) SetStatus(ctx context.Context, id, status string) error {
	return i.c.Put(ctx, "/identities/"+id+"/status", map[string]string{"status": status}, nil)
}

// UploadDocument attaches a KYC document. Success leaves the
// just-submitted marker for the review screen to pick up.
func (i *IdentitiesAPI) UploadDocument(ctx context.Context, userID, filename string, file io.Reader) error {
	fields := map[string]string{"userId": userID}
	if err := i.c.Upload(ctx, "/identities/"+userID+"/documents", "document", filename, file, fields, nil); err != nil {
		return err
	}
	if err := i.c.state.Set(storage.KeyIdentitySubmitted, []byte("1")); err != nil {
		slog.Warn("failed to record identity submission", slog.String("error", err.Error()))
	}
	return nil
}

// Category is a marketplace category.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// CategoriesAPI wraps the category/* endpoint group.
type CategoriesAPI struct {
	c *Client
}

func (ca *CategoriesAPI) List(ctx context.Context) ([]*Category, error) {
	var resp struct {
		Categories []*Category `json:"categories"`
	}
	if err := ca.c.Get(ctx, "/category", &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

func (ca *CategoriesAPI) Create(ctx context.Context, name, parentID string) (*Category, error) {
	var resp struct {
		Category *Category `json:"category"`
	}
	body := map[string]string{"name": name, "parentId": parentID}
	if err := ca.c.Post(ctx, "/category", body, &resp); err != nil {
		return nil, err
	}
	return resp.Category, nil
}

func (ca *CategoriesAPI) Remove(ctx context.Context, id string) error {
	return ca.c.Delete(ctx, "/category/"+id, nil)
}

// Report is a user report/review flagged for moderation.
type Report struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Target    string    `json:"target"`
	Reason    string    `json:"reason"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewsAPI wraps the review/* and report/* endpoint groups.
type ReviewsAPI struct {
	c *Client
}

func (r *ReviewsAPI) Reports(ctx context.Context) ([]*Report, error) {
	var resp struct {
		Reports []*Report `json:"reports"`
	}
	if err := r.c.Get(ctx, "/report", &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}

func (r *ReviewsAPI) Resolve(ctx context.Context, id string) error {
	return r.c.Put(ctx, fmt.Sprintf("/report/%s/resolve", id), nil, nil)
}

// Terms is a published terms-of-service document.
type Terms struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// TermsAPI wraps the terms/* endpoint group.
type TermsAPI struct {
	c *Client
}

// Latest fetches the latest published terms. A 404 means no terms have
// been published yet and is returned as (nil, nil).
func (t *TermsAPI) Latest(ctx context.Context) (*Terms, error) {
	var resp struct {
		Terms *Terms `json:"terms"`
	}
	err := t.c.Get(ctx, "/terms/latest", &resp)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.Terms, nil
}
