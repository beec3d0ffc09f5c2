package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, name, supplier string) LineItem {
	return LineItem{
		ID:        id,
		Item:      name,
		Supplier:  supplier,
		Quantity:  1,
		UnitPrice: 10,
	}
}

func TestReduceStepTwo_SaveItem(t *testing.T) {
	t.Run("first item establishes the supplier", func(t *testing.T) {
		s := StepTwoState{}

		next := ReduceStepTwo(s, SaveItem{Item: item("i1", "Laptop", "Acme Corp")})

		assert.Equal(t, "Acme Corp", next.Values.SupplierName)
		require.Len(t, next.Values.Items, 1)
		assert.Empty(t, next.SupplierWarning)
	})

	t.Run("same-supplier item appends", func(t *testing.T) {
		s := StepTwoState{}
		s = ReduceStepTwo(s, SaveItem{Item: item("i1", "Laptop", "Acme Corp")})

		next := ReduceStepTwo(s, SaveItem{Item: item("i2", "Monitor", "Acme Corp")})

		require.Len(t, next.Values.Items, 2)
		assert.Equal(t, "i1", next.Values.Items[0].ID)
		assert.Equal(t, "i2", next.Values.Items[1].ID)
	})

	t.Run("mismatched supplier is rejected with warning and items untouched", func(t *testing.T) {
		s := StepTwoState{}
		s = ReduceStepTwo(s, SaveItem{Item: item("i1", "Laptop", "Acme Corp")})

		next := ReduceStepTwo(s, SaveItem{Item: item("i2", "Chair", "Globex")})

		assert.Equal(t, SupplierMismatchMessage, next.SupplierWarning)
		require.Len(t, next.Values.Items, 1)
		assert.Equal(t, "Acme Corp", next.Values.SupplierName)
	})

	t.Run("saving an existing id replaces in place", func(t *testing.T) {
		s := StepTwoState{}
		s = ReduceStepTwo(s, SaveItem{Item: item("i1", "Laptop", "Acme Corp")})
		s = ReduceStepTwo(s, SaveItem{Item: item("i2", "Monitor", "Acme Corp")})

		updated := item("i1", "Laptop Pro", "Acme Corp")
		updated.Quantity = 3
		next := ReduceStepTwo(s, SaveItem{Item: updated})

		require.Len(t, next.Values.Items, 2)
		assert.Equal(t, "Laptop Pro", next.Values.Items[0].Item)
		assert.Equal(t, float64(3), next.Values.Items[0].Quantity)
		assert.Equal(t, "i2", next.Values.Items[1].ID)
	})

	t.Run("does not mutate the previous state", func(t *testing.T) {
		s := StepTwoState{}
		s = ReduceStepTwo(s, SaveItem{Item: item("i1", "Laptop", "Acme Corp")})

		_ = ReduceStepTwo(s, SaveItem{Item: item("i2", "Monitor", "Acme Corp")})

		require.Len(t, s.Values.Items, 1)
	})
}

func TestReduceStepTwo_DeleteItem(t *testing.T) {
	t.Run("removes the item by id", func(t *testing.T) {
		s := StepTwoState{}
		s = ReduceStepTwo(s, SaveItem{Item: item("i1", "Laptop", "Acme Corp")})
		s = ReduceStepTwo(s, SaveItem{Item: item("i2", "Monitor", "Acme Corp")})

		next := ReduceStepTwo(s, DeleteItem{ID: "i1"})

		require.Len(t, next.Values.Items, 1)
		assert.Equal(t, "i2", next.Values.Items[0].ID)
		assert.Equal(t, "Acme Corp", next.Values.SupplierName)
	})

	t.Run("deleting the last item resets the supplier", func(t *testing.T) {
		s := StepTwoState{}
		s = ReduceStepTwo(s, SaveItem{Item: item("i1", "Laptop", "Acme Corp")})

		next := ReduceStepTwo(s, DeleteItem{ID: "i1"})

		assert.Empty(t, next.Values.Items)
		assert.Equal(t, "", next.Values.SupplierName)

		// A different supplier can now establish itself.
		next = ReduceStepTwo(next, SaveItem{Item: item("i2", "Chair", "Globex")})
		assert.Equal(t, "Globex", next.Values.SupplierName)
		assert.Empty(t, next.SupplierWarning)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		s := StepTwoState{}
		s = ReduceStepTwo(s, SaveItem{Item: item("i1", "Laptop", "Acme Corp")})

		next := ReduceStepTwo(s, DeleteItem{ID: "missing"})

		require.Len(t, next.Values.Items, 1)
	})
}

func TestReduceStepTwo_ReorderItems(t *testing.T) {
	base := func() StepTwoState {
		s := StepTwoState{}
		s = ReduceStepTwo(s, SaveItem{Item: item("a", "A", "Acme Corp")})
		s = ReduceStepTwo(s, SaveItem{Item: item("b", "B", "Acme Corp")})
		s = ReduceStepTwo(s, SaveItem{Item: item("c", "C", "Acme Corp")})
		return s
	}

	ids := func(s StepTwoState) []string {
		out := make([]string, 0, len(s.Values.Items))
		for _, it := range s.Values.Items {
			out = append(out, it.ID)
		}
		return out
	}

	t.Run("moves source to destination shifting the rest", func(t *testing.T) {
		next := ReduceStepTwo(base(), ReorderItems{Source: 0, Destination: 2})
		assert.Equal(t, []string{"b", "c", "a"}, ids(next))

		next = ReduceStepTwo(base(), ReorderItems{Source: 2, Destination: 0})
		assert.Equal(t, []string{"c", "a", "b"}, ids(next))
	})

	t.Run("reorder then inverse restores the original order", func(t *testing.T) {
		s := base()
		moved := ReduceStepTwo(s, ReorderItems{Source: 0, Destination: 2})
		restored := ReduceStepTwo(moved, ReorderItems{Source: 2, Destination: 0})
		assert.Equal(t, ids(s), ids(restored))
	})

	t.Run("equal or out-of-range indices are no-ops", func(t *testing.T) {
		s := base()
		assert.Equal(t, ids(s), ids(ReduceStepTwo(s, ReorderItems{Source: 1, Destination: 1})))
		assert.Equal(t, ids(s), ids(ReduceStepTwo(s, ReorderItems{Source: -1, Destination: 2})))
		assert.Equal(t, ids(s), ids(ReduceStepTwo(s, ReorderItems{Source: 0, Destination: 3})))
	})
}

func TestReduceStepTwo_Warnings(t *testing.T) {
	t.Run("ClearWarning clears only the warning", func(t *testing.T) {
		s := StepTwoState{}
		s = ReduceStepTwo(s, SaveItem{Item: item("i1", "Laptop", "Acme Corp")})
		s = ReduceStepTwo(s, SaveItem{Item: item("i2", "Chair", "Globex")})
		require.Equal(t, SupplierMismatchMessage, s.SupplierWarning)

		next := ReduceStepTwo(s, ClearWarning{})

		assert.Empty(t, next.SupplierWarning)
		require.Len(t, next.Values.Items, 1)
	})

	t.Run("SetValues replaces wholesale and clears any warning", func(t *testing.T) {
		s := StepTwoState{SupplierWarning: SupplierMismatchMessage}

		next := ReduceStepTwo(s, SetValues{Data: StepTwoData{
			SupplierName: "Initech",
			Items:        []LineItem{item("x", "X", "Initech")},
		}})

		assert.Empty(t, next.SupplierWarning)
		assert.Equal(t, "Initech", next.Values.SupplierName)
		require.Len(t, next.Values.Items, 1)
	})
}
