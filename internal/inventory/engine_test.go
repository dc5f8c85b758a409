package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shramba/internal/model"
	"github.com/erazemk/shramba/internal/store"
)

func TestNewRequiresSignedInSession(t *testing.T) {
	_, err := New(model.Session{GroupID: testGroup}, nil, nil)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = New(model.Session{SignedIn: true}, nil, nil)
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestSubscribeAppliesInitialSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, err := f.coll.Create(ctx, testGroup, model.ItemFields{Name: "Rice", Quantity: 3, Description: "white rice"})
	require.NoError(t, err)
	_, _, err = f.coll.Create(ctx, "garage", model.ItemFields{Name: "Oil", Quantity: 1, Description: "motor oil"})
	require.NoError(t, err)

	sub, err := f.engine.Subscribe(ctx)
	require.NoError(t, err)

	// Subscribe returns with the snapshot already applied.
	assert.Equal(t, []string{"Rice"}, itemNames(f.engine.Items()))

	select {
	case items := <-sub.Updates():
		assert.Equal(t, []string{"Rice"}, itemNames(items))
	case <-time.After(time.Second):
		t.Fatal("expected initial update")
	}
}

func TestLocalListFollowsOtherClients(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "white rice"})

	qty := 7
	_, err := f.coll.Update(ctx, testGroup, id, model.ItemPatch{Quantity: &qty})
	require.NoError(t, err)
	f.waitFor(t, func(items []model.Item) bool { return len(items) == 1 && items[0].Quantity == 7 })

	_, err = f.coll.Delete(ctx, testGroup, id)
	require.NoError(t, err)
	f.waitFor(t, func(items []model.Item) bool { return len(items) == 0 })
}

func TestItemsNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, name := range []string{"Rice", "Beans", "Flour", "Salt"} {
		_, err := f.engine.AddItem(ctx, Draft{Name: name, Quantity: 1, Description: "staple"})
		require.NoError(t, err)
		f.waitForName(t, name)

		items := f.engine.Items()
		for i := 1; i < len(items); i++ {
			require.True(t, items[i-1].CreatedAt.After(items[i].CreatedAt), "not sorted: %v", itemNames(items))
		}
	}

	assert.Equal(t, []string{"Salt", "Flour", "Beans", "Rice"}, itemNames(f.engine.Items()))
}

func TestViewFiltersLocalList(t *testing.T) {
	f := newFixture(t, nil)

	f.seed(t, model.ItemFields{Name: "Apple", Quantity: 1, Description: "x"})
	f.seed(t, model.ItemFields{Name: "Banana", Quantity: 1, Description: "x"})
	f.seed(t, model.ItemFields{Name: "Apricot", Quantity: 1, Description: "x"})

	assert.Equal(t, []string{"Apricot", "Apple"}, itemNames(f.engine.View("ap")))
	assert.Len(t, f.engine.View(""), 3)
}

func TestAddItemValidation(t *testing.T) {
	blobs := new(mockBlobs)
	f := newFixture(t, blobs)
	ctx := context.Background()
	pending := model.PendingImage(testPNG(t), "rice.png")

	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{"zero quantity", Draft{Name: "Rice", Quantity: 0, Description: "white rice", Image: pending}, "quantity"},
		{"negative quantity", Draft{Name: "Rice", Quantity: -2, Description: "white rice"}, "quantity"},
		{"missing name", Draft{Name: "  ", Quantity: 1, Description: "white rice"}, "name"},
		{"missing description", Draft{Name: "Rice", Quantity: 1}, "description"},
		{"bad image", Draft{Name: "Rice", Quantity: 1, Description: "x", Image: model.PendingImage([]byte("GIF89a"), "a.gif")}, "image"},
		{"stored image", Draft{Name: "Rice", Quantity: 1, Description: "x", Image: model.StoredImage("/api/blobs/other")}, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.AddItem(ctx, tt.draft)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	assert.Zero(t, f.docs.writes())
	blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddItemQuantityMessage(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.engine.AddItem(context.Background(), Draft{Name: "Rice", Quantity: 0, Description: "x"})

	assert.EqualError(t, err, "quantity must be positive")
}

func TestAddItemCollision(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "white rice"})

	_, err := f.engine.AddItem(context.Background(), Draft{Name: "Rice", Quantity: 5, Description: "white rice"})

	var cerr *CollisionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Rice", cerr.Name)
	assert.Contains(t, err.Error(), `"Rice"`)
	assert.Zero(t, f.docs.writes())
	assert.Len(t, f.engine.Items(), 1)
}

func TestAddItemCollisionIsCaseSensitive(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "white rice"})

	_, err := f.engine.AddItem(context.Background(), Draft{Name: "rice", Quantity: 1, Description: "brown rice"})

	require.NoError(t, err)
	f.waitForName(t, "rice")
}

func TestAddItemWithImage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.AddItem(ctx, Draft{
		Name: "Rice", Quantity: 2, Description: "white rice",
		Image: model.PendingImage(testPNG(t), "rice.png"),
	})
	require.NoError(t, err)

	item := f.waitForName(t, "Rice")
	want := "/api/blobs/inventory-images/kitchen42/" + "1767225600000_rice.jpg"
	assert.Equal(t, want, item.Image)

	n, err := store.CountBlobs(ctx, f.db, testGroup)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddItemUploadFailureAborts(t *testing.T) {
	blobs := new(mockBlobs)
	blobs.On("Upload", mock.Anything, testGroup, mock.Anything, mock.Anything, "image/jpeg").
		Return("", errors.New("bucket unavailable"))
	f := newFixture(t, blobs)

	_, err := f.engine.AddItem(context.Background(), Draft{
		Name: "Rice", Quantity: 2, Description: "white rice",
		Image: model.PendingImage(testPNG(t), "rice.png"),
	})

	var rerr *RemoteOperationError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "upload image", rerr.Op)
	assert.Zero(t, f.docs.writes(), "no item may be created without its image")
	blobs.AssertExpectations(t)
}

func TestAddItemImageKeyTakenAborts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.AddItem(ctx, Draft{
		Name: "Rice", Quantity: 1, Description: "white rice",
		Image: model.PendingImage(testPNG(t), "rice.png"),
	})
	require.NoError(t, err)

	// Same file name in the same millisecond.
	_, err = f.engine.AddItem(ctx, Draft{
		Name: "Brown rice", Quantity: 1, Description: "brown rice",
		Image: model.PendingImage(testPNG(t), "rice.png"),
	})

	var rerr *RemoteOperationError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "upload image", rerr.Op)
	assert.ErrorIs(t, err, store.ErrBlobExists)
	assert.Equal(t, 1, f.docs.creates)

	n, err := store.CountBlobs(ctx, f.db, testGroup)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddItemCreateFailurePropagates(t *testing.T) {
	f := newFixture(t, nil)
	cause := errors.New("permission denied")
	f.docs.failCreate = cause

	_, err := f.engine.AddItem(context.Background(), Draft{Name: "Rice", Quantity: 1, Description: "x"})

	var rerr *RemoteOperationError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, cause)
}

func TestDecrementScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "white rice"})

	for _, want := range []int{2, 1} {
		outcome, err := f.engine.DecrementOrDelete(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUpdated, outcome)
		f.waitFor(t, func(items []model.Item) bool { return len(items) == 1 && items[0].Quantity == want })
	}

	outcome, err := f.engine.DecrementOrDelete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, outcome)
	f.waitFor(t, func(items []model.Item) bool { return len(items) == 0 })

	// No write ever carried a non-positive quantity.
	for _, patch := range f.docs.updates {
		require.NotNil(t, patch.Quantity)
		assert.Positive(t, *patch.Quantity)
	}

	_, err = f.engine.DecrementOrDelete(ctx, id)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestDecrementDoesNotReorder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	older := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x"})
	f.seed(t, model.ItemFields{Name: "Beans", Quantity: 3, Description: "x"})

	_, err := f.engine.DecrementOrDelete(ctx, older)
	require.NoError(t, err)
	f.waitFor(t, func(items []model.Item) bool { return len(items) == 2 && items[1].Quantity == 2 })

	assert.Equal(t, []string{"Beans", "Rice"}, itemNames(f.engine.Items()))
}

func TestDecrementBackToBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "white rice"})

	for range 2 {
		outcome, err := f.engine.DecrementOrDelete(ctx, id)
		require.NoError(t, err)
		require.Equal(t, OutcomeUpdated, outcome)
	}
	item, ok := f.engine.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, 1, item.Quantity)

	outcome, err := f.engine.DecrementOrDelete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, outcome)
	assert.Empty(t, f.engine.Items())

	var quantities []int
	for _, patch := range f.docs.updates {
		quantities = append(quantities, *patch.Quantity)
	}
	assert.Equal(t, []int{2, 1}, quantities)
}

func TestAddItemTwiceFromSameClient(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	id, err := f.engine.AddItem(ctx, Draft{Name: "Rice", Quantity: 1, Description: "x"})
	require.NoError(t, err)
	_, ok := f.engine.Lookup(id)
	require.True(t, ok, "own write is visible when AddItem returns")

	_, err = f.engine.AddItem(ctx, Draft{Name: "Rice", Quantity: 2, Description: "x"})
	var cerr *CollisionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, f.docs.creates)
}

func TestWritesDoNotWaitOnClosedEngine(t *testing.T) {
	f := newFixture(t, nil)
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x"})
	require.NoError(t, f.engine.Close())

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.DecrementOrDelete(context.Background(), id)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("decrement blocked without a subscription")
	}
}

func TestDecrementLastUnitDeletesImage(t *testing.T) {
	blobs := new(mockBlobs)
	blobs.On("Delete", mock.Anything, "/api/blobs/inventory-images/kitchen42/1_rice.jpg").Return(nil).Once()
	f := newFixture(t, blobs)
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 1, Description: "x", Image: "/api/blobs/inventory-images/kitchen42/1_rice.jpg"})

	outcome, err := f.engine.DecrementOrDelete(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, outcome)
	assert.Equal(t, []string{id}, f.docs.deletes)
	blobs.AssertExpectations(t)
}

func TestDeleteItemWithoutImageSkipsStorage(t *testing.T) {
	blobs := new(mockBlobs)
	f := newFixture(t, blobs)
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 9, Description: "x"})

	require.NoError(t, f.engine.DeleteItem(context.Background(), id))

	f.waitFor(t, func(items []model.Item) bool { return len(items) == 0 })
	blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteItemRemovesImageAndDocument(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.AddItem(ctx, Draft{
		Name: "Rice", Quantity: 5, Description: "x",
		Image: model.PendingImage(testPNG(t), "rice.png"),
	})
	require.NoError(t, err)
	item := f.waitForName(t, "Rice")

	require.NoError(t, f.engine.DeleteItem(ctx, item.ID))
	f.waitFor(t, func(items []model.Item) bool { return len(items) == 0 })

	n, err := store.CountBlobs(ctx, f.db, testGroup)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteImageFailureKeepsDocument(t *testing.T) {
	blobs := new(mockBlobs)
	blobs.On("Delete", mock.Anything, mock.Anything).Return(errors.New("network down"))
	f := newFixture(t, blobs)
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 1, Description: "x", Image: "/api/blobs/k"})

	err := f.engine.DeleteItem(context.Background(), id)

	var rerr *RemoteOperationError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "delete image", rerr.Op)
	assert.Empty(t, f.docs.deletes)
}

func TestUpdateItemCollision(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	rice := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x"})
	f.seed(t, model.ItemFields{Name: "Beans", Quantity: 3, Description: "x"})

	_, err := f.engine.UpdateItem(ctx, rice, Draft{Name: "Beans", Quantity: 3, Description: "x"})

	var cerr *CollisionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Beans", cerr.Name)
	assert.Zero(t, f.docs.writes())
}

func TestUpdateItemSameNameAsSelf(t *testing.T) {
	f := newFixture(t, nil)
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x"})

	outcome, err := f.engine.UpdateItem(context.Background(), id, Draft{Name: "Rice", Quantity: 4, Description: "basmati"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	f.waitFor(t, func(items []model.Item) bool {
		return len(items) == 1 && items[0].Quantity == 4 && items[0].Description == "basmati"
	})
}

func TestUpdateItemRefreshesCreatedAt(t *testing.T) {
	f := newFixture(t, nil)
	older := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x"})
	f.seed(t, model.ItemFields{Name: "Beans", Quantity: 3, Description: "x"})
	require.Equal(t, []string{"Beans", "Rice"}, itemNames(f.engine.Items()))

	_, err := f.engine.UpdateItem(context.Background(), older, Draft{Name: "Rice", Quantity: 3, Description: "x"})
	require.NoError(t, err)

	// Editing moves the item to the top.
	f.waitFor(t, func(items []model.Item) bool { return len(items) == 2 && items[0].ID == older })
}

func TestUpdateItemBelowOneDeletes(t *testing.T) {
	blobs := new(mockBlobs)
	blobs.On("Delete", mock.Anything, "/api/blobs/k").Return(nil).Once()
	f := newFixture(t, blobs)
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x", Image: "/api/blobs/k"})

	outcome, err := f.engine.UpdateItem(context.Background(), id, Draft{Name: "Rice", Quantity: 0, Description: "x"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeDeleted, outcome)
	assert.Empty(t, f.docs.updates, "a non-positive quantity must never be written")
	assert.Equal(t, []string{id}, f.docs.deletes)
	f.waitFor(t, func(items []model.Item) bool { return len(items) == 0 })
	blobs.AssertExpectations(t)
}

func TestUpdateItemKeepsImageWhenUnsetOrStored(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x", Image: "/api/blobs/k"})

	_, err := f.engine.UpdateItem(ctx, id, Draft{Name: "Rice", Quantity: 2, Description: "x"})
	require.NoError(t, err)
	_, err = f.engine.UpdateItem(ctx, id, Draft{Name: "Rice", Quantity: 2, Description: "x", Image: model.StoredImage("/api/blobs/k")})
	require.NoError(t, err)

	for _, patch := range f.docs.updates {
		assert.Nil(t, patch.Image)
	}
	f.waitFor(t, func(items []model.Item) bool { return len(items) == 1 && items[0].Image == "/api/blobs/k" })
}

// The previous image of an edited item stays in storage. This documents a
// known leak rather than desired behaviour.
func TestUpdateItemReplacedImageIsNotDeleted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.AddItem(ctx, Draft{Name: "Rice", Quantity: 1, Description: "x", Image: model.PendingImage(testPNG(t), "old.png")})
	require.NoError(t, err)
	item := f.waitForName(t, "Rice")

	_, err = f.engine.UpdateItem(ctx, item.ID, Draft{Name: "Rice", Quantity: 1, Description: "x", Image: model.PendingImage(testPNG(t), "new.png")})
	require.NoError(t, err)
	f.waitFor(t, func(items []model.Item) bool { return len(items) == 1 && strings.HasSuffix(items[0].Image, "_new.jpg") })

	n, err := store.CountBlobs(ctx, f.db, testGroup)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpdateItemPatchesOpenDetail(t *testing.T) {
	f := newFixture(t, nil)
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "white"})
	other := f.seed(t, model.ItemFields{Name: "Beans", Quantity: 1, Description: "black"})

	_, err := f.engine.OpenDetail(id)
	require.NoError(t, err)

	// Hold back the write so only the optimistic patch can change the view.
	f.docs.swallowUpdate = true
	_, err = f.engine.UpdateItem(context.Background(), id, Draft{Name: "Long grain rice", Quantity: 8, Description: "white"})
	require.NoError(t, err)

	detail, ok := f.engine.Detail()
	require.True(t, ok)
	assert.Equal(t, "Long grain rice", detail.Name)
	assert.Equal(t, 8, detail.Quantity)
	assert.Equal(t, testClock, detail.CreatedAt)

	local, _ := f.engine.Lookup(id)
	assert.Equal(t, "Rice", local.Name, "the list itself waits for the snapshot")

	// Editing another item leaves the detail view alone.
	_, err = f.engine.UpdateItem(context.Background(), other, Draft{Name: "Beans", Quantity: 2, Description: "black"})
	require.NoError(t, err)
	detail, _ = f.engine.Detail()
	assert.Equal(t, "Long grain rice", detail.Name)
}

func TestDetailFollowsSnapshots(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x"})

	_, err := f.engine.OpenDetail(id)
	require.NoError(t, err)

	qty := 9
	_, err = f.coll.Update(ctx, testGroup, id, model.ItemPatch{Quantity: &qty})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		d, ok := f.engine.Detail()
		return ok && d.Quantity == 9
	}, 2*time.Second, 5*time.Millisecond)

	_, err = f.coll.Delete(ctx, testGroup, id)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := f.engine.Detail()
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDeleteClosesDetail(t *testing.T) {
	f := newFixture(t, nil)
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x"})
	_, err := f.engine.OpenDetail(id)
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteItem(context.Background(), id))

	_, ok := f.engine.Detail()
	assert.False(t, ok)
}

func TestOperationsOnUnknownItem(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.UpdateItem(ctx, "nope", Draft{Name: "Rice", Quantity: 1, Description: "x"})
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = f.engine.DecrementOrDelete(ctx, "nope")
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, f.engine.DeleteItem(ctx, "nope"), ErrItemNotFound)
	_, err = f.engine.OpenDetail("nope")
	assert.ErrorIs(t, err, ErrItemNotFound)

	assert.Zero(t, f.docs.writes())
}

func TestRemoteFailuresAreNotRetried(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.seed(t, model.ItemFields{Name: "Rice", Quantity: 3, Description: "x"})

	cause := errors.New("unavailable")
	f.docs.failUpdate = cause

	_, err := f.engine.DecrementOrDelete(ctx, id)

	assert.ErrorIs(t, err, cause)
	assert.Len(t, f.docs.updates, 1)
}
