package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/shramba/internal/imaging"
	"github.com/erazemk/shramba/internal/model"
)

// ImagePrefix is the storage namespace of item images.
const ImagePrefix = "inventory-images"

// Draft is the user input of an add or edit.
type Draft struct {
	Name        string
	Quantity    int
	Description string
	Image       model.Image
}

func (d Draft) normalized() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	return d
}

func (d Draft) checkRequired() error {
	if d.Name == "" {
		return invalid("name", "name is required")
	}
	if d.Description == "" {
		return invalid("description", "description is required")
	}
	return nil
}

// prepareImage validates a pending image before anything is written.
func prepareImage(img model.Image) (*imaging.Prepared, error) {
	if img.Kind() != model.ImagePending {
		return nil, nil
	}
	prepared, err := imaging.Prepare(img.Data(), img.Filename())
	if err != nil {
		return nil, invalid("image", err.Error())
	}
	return prepared, nil
}

// AddItem creates an item and returns its ID. It returns once the local
// list holds a snapshot that includes the item.
func (e *Engine) AddItem(ctx context.Context, d Draft) (string, error) {
	d = d.normalized()
	if err := d.checkRequired(); err != nil {
		return "", err
	}
	if d.Quantity < 1 {
		return "", invalid("quantity", "quantity must be positive")
	}
	if e.collision(d.Name, "") {
		return "", &CollisionError{Name: d.Name}
	}
	if d.Image.Kind() == model.ImageStored {
		return "", invalid("image", "a new item needs a new image upload")
	}
	prepared, err := prepareImage(d.Image)
	if err != nil {
		return "", err
	}

	fields := model.ItemFields{
		Name:        d.Name,
		Quantity:    d.Quantity,
		Description: d.Description,
	}
	if prepared != nil {
		ref, err := e.upload(ctx, prepared)
		if err != nil {
			return "", err
		}
		fields.Image = ref
	}

	id, rev, err := e.docs.Create(ctx, e.session.GroupID, fields)
	if err != nil {
		if fields.Image != "" {
			e.logger.Warn("item not created, uploaded image left behind", "image", fields.Image, "error", err)
		}
		return "", remote("create item", err)
	}

	e.awaitRevision(ctx, rev)
	e.logger.Info("item added", "item", id, "name", d.Name, "quantity", d.Quantity)
	return id, nil
}

// UpdateItem edits an item. A quantity below one deletes the item and its
// image instead. A replaced image is not removed from storage.
func (e *Engine) UpdateItem(ctx context.Context, id string, d Draft) (Outcome, error) {
	item, ok := e.Lookup(id)
	if !ok {
		return OutcomeUpdated, ErrItemNotFound
	}

	d = d.normalized()
	if err := d.checkRequired(); err != nil {
		return OutcomeUpdated, err
	}
	if e.collision(d.Name, id) {
		return OutcomeUpdated, &CollisionError{Name: d.Name}
	}

	intent := ApplyQuantity(item, d.Quantity)
	if intent.Kind == IntentDelete {
		if err := e.remove(ctx, item); err != nil {
			return OutcomeUpdated, err
		}
		return OutcomeDeleted, nil
	}

	prepared, err := prepareImage(d.Image)
	if err != nil {
		return OutcomeUpdated, err
	}

	patch := model.ItemPatch{
		Name:             &d.Name,
		Quantity:         &intent.Quantity,
		Description:      &d.Description,
		RefreshCreatedAt: true,
	}
	if prepared != nil {
		ref, err := e.upload(ctx, prepared)
		if err != nil {
			return OutcomeUpdated, err
		}
		patch.Image = &ref
	}

	rev, err := e.docs.Update(ctx, e.session.GroupID, id, patch)
	if err != nil {
		return OutcomeUpdated, remote("update item", err)
	}

	// Until the snapshot lands, the open detail view shows the edit.
	if !e.awaitRevision(ctx, rev) {
		e.patchDetail(id, patch)
	}
	e.logger.Info("item updated", "item", id, "name", d.Name, "quantity", intent.Quantity)
	return OutcomeUpdated, nil
}

// DecrementOrDelete removes one unit of an item, deleting the item and its
// image when the last unit goes.
func (e *Engine) DecrementOrDelete(ctx context.Context, id string) (Outcome, error) {
	item, ok := e.Lookup(id)
	if !ok {
		return OutcomeUpdated, ErrItemNotFound
	}

	intent := ApplyQuantity(item, item.Quantity-1)
	if intent.Kind == IntentDelete {
		if err := e.remove(ctx, item); err != nil {
			return OutcomeUpdated, err
		}
		return OutcomeDeleted, nil
	}

	patch := model.ItemPatch{Quantity: &intent.Quantity}
	rev, err := e.docs.Update(ctx, e.session.GroupID, id, patch)
	if err != nil {
		return OutcomeUpdated, remote("decrement item", err)
	}
	e.awaitRevision(ctx, rev)

	e.logger.Info("item decremented", "item", id, "quantity", intent.Quantity)
	return OutcomeUpdated, nil
}

// DeleteItem removes an item and its image regardless of quantity.
func (e *Engine) DeleteItem(ctx context.Context, id string) error {
	item, ok := e.Lookup(id)
	if !ok {
		return ErrItemNotFound
	}
	return e.remove(ctx, item)
}

// remove deletes the stored image first, then the document.
func (e *Engine) remove(ctx context.Context, item model.Item) error {
	if item.HasImage() {
		if err := e.blobs.Delete(ctx, item.Image); err != nil {
			return remote("delete image", err)
		}
	}
	rev, err := e.docs.Delete(ctx, e.session.GroupID, item.ID)
	if err != nil {
		return remote("delete item", err)
	}

	e.closeDetailOn(item.ID)
	e.awaitRevision(ctx, rev)
	e.logger.Info("item deleted", "item", item.ID, "name", item.Name)
	return nil
}

func (e *Engine) upload(ctx context.Context, img *imaging.Prepared) (string, error) {
	key := fmt.Sprintf("%s/%s/%d_%s", ImagePrefix, e.session.GroupID, e.now().UnixMilli(), img.Filename)
	ref, err := e.blobs.Upload(ctx, e.session.GroupID, key, img.Data, img.ContentType)
	if err != nil {
		return "", remote("upload image", err)
	}
	return ref, nil
}
