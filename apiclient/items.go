package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mmdatafocus/invoice_backend/invoicing"
)

// Items is the catalog source.
type Items struct {
	c *Client
}

func NewItems(c *Client) *Items { return &Items{c: c} }

// List returns the full item records, optionally filtered by name or
// description.
func (s *Items) List(ctx context.Context, search string) ([]invoicing.Item, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": {search}}
	}
	var out []invoicing.Item
	if err := s.c.doJSON(ctx, true, http.MethodGet, "/Item/GetList", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Lookup fetches the lookup list as a catalog snapshot for drafts.
func (s *Items) Lookup(ctx context.Context) (*invoicing.Catalog, error) {
	var out []invoicing.Item
	if err := s.c.doJSON(ctx, true, http.MethodGet, "/Item/GetLookupList", nil, nil, &out); err != nil {
		return nil, err
	}
	return invoicing.NewCatalog(out), nil
}

func (s *Items) ByID(ctx context.Context, id int) (*invoicing.Item, error) {
	var out invoicing.Item
	if err := s.c.doJSON(ctx, true, http.MethodGet, "/Item/"+strconv.Itoa(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Save validates it and creates or updates it. Updates carry it.UpdatedOn
// and fail with a Conflict error when the item changed in the meantime.
func (s *Items) Save(ctx context.Context, it invoicing.Item, mode Mode) (*invoicing.SaveResult, error) {
	if err := invoicing.ValidateItem(ctx, it); err != nil {
		return nil, err
	}
	method := http.MethodPost
	switch mode {
	case Create:
		it.ItemID = 0
		it.UpdatedOn = ""
	case Update:
		if it.ItemID == 0 {
			return nil, errUpdateNew
		}
		method = http.MethodPut
	default:
		return nil, fmt.Errorf("unknown save mode %d", mode)
	}
	var res invoicing.SaveResult
	if err := s.c.doJSON(ctx, true, method, "/Item", nil, it, &res); err != nil {
		return nil, err
	}
	if res.PrimaryKeyID == 0 {
		res.PrimaryKeyID = it.ItemID
	}
	return &res, nil
}

// Picture is an image to attach to an item or a company.
type Picture struct {
	Filename string
	Data     io.Reader
}

// SaveWithPicture saves the item and then uploads pic. If the item saved
// but the upload failed, the result is returned together with a
// *PartialSuccessError; the item is not rolled back.
func (s *Items) SaveWithPicture(ctx context.Context, it invoicing.Item, mode Mode, pic *Picture) (*invoicing.SaveResult, error) {
	res, err := s.Save(ctx, it, mode)
	if err != nil {
		return nil, err
	}
	if pic == nil {
		return res, nil
	}
	if err := s.UploadPicture(ctx, res.PrimaryKeyID, *pic); err != nil {
		return res, &PartialSuccessError{PrimaryKeyID: res.PrimaryKeyID, UpdatedOn: res.UpdatedOn, Err: err}
	}
	return res, nil
}

func (s *Items) Delete(ctx context.Context, id int) error {
	return s.c.doJSON(ctx, true, http.MethodDelete, "/Item/"+strconv.Itoa(id), nil, nil, nil)
}

// IsNameTaken asks whether another item already uses name. excludeID is
// the item being edited, 0 for a new one.
func (s *Items) IsNameTaken(ctx context.Context, name string, excludeID int) (bool, error) {
	q := url.Values{"ItemName": {name}}
	if excludeID > 0 {
		q.Set("ExcludeID", strconv.Itoa(excludeID))
	}
	err := s.c.doJSON(ctx, true, http.MethodGet, "/Item/CheckDuplicateItemName", q, nil, nil)
	if errors.Is(err, ErrConflict) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// UploadPicture sends pic as multipart fields ItemID and File.
func (s *Items) UploadPicture(ctx context.Context, itemID int, pic Picture) error {
	return s.c.postFile(ctx, "/Item/UpdateItemPicture", map[string]string{"ItemID": strconv.Itoa(itemID)}, pic)
}

// PictureURL returns the public URL of the item's picture.
func (s *Items) PictureURL(ctx context.Context, itemID int) (string, error) {
	var out string
	err := s.c.doJSON(ctx, true, http.MethodGet, "/Item/Picture/"+strconv.Itoa(itemID), nil, nil, &out)
	return out, err
}

func (s *Items) ThumbnailURL(ctx context.Context, itemID int) (string, error) {
	var out string
	err := s.c.doJSON(ctx, true, http.MethodGet, "/Item/PictureThumbnail/"+strconv.Itoa(itemID), nil, nil, &out)
	return out, err
}
