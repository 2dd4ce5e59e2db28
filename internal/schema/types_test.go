package schema

import "testing"

func TestPriceFloat(t *testing.T) {
	tests := []struct {
		price Price
		scale Scale
		want  float64
	}{
		{10025, 2, 100.25},
		{10025, 0, 10025},
		{-500, 1, -50},
		{0, 8, 0},
	}
	for _, tt := range tests {
		if got := tt.price.Float(tt.scale); got != tt.want {
			t.Errorf("Price(%d).Float(%d) = %v, want %v", tt.price, tt.scale, got, tt.want)
		}
	}
}

func TestQuantityFloat(t *testing.T) {
	if got := Quantity(150).Float(1); got != 15.0 {
		t.Errorf("Quantity(150).Float(1) = %v, want 15", got)
	}
	if !Quantity(1).IsPositive() {
		t.Error("Quantity(1).IsPositive() = false")
	}
	if Quantity(0).IsPositive() || Quantity(-1).IsPositive() {
		t.Error("non-positive quantity reported positive")
	}
}

func TestOrderSide(t *testing.T) {
	if !OrderSideBuy.IsAvailable() || !OrderSideSell.IsAvailable() {
		t.Error("valid sides reported unavailable")
	}
	if OrderSide(0).IsAvailable() || _side_end.IsAvailable() {
		t.Error("sentinel sides reported available")
	}
	if OrderSideBuy.String() != "BUY" || OrderSideSell.String() != "SELL" {
		t.Error("unexpected side strings")
	}
	if OrderSide(0).String() != "UNKNOWN" {
		t.Error("zero side should stringify as UNKNOWN")
	}
}

func TestBookAction(t *testing.T) {
	actions := []BookAction{BookActionAdd, BookActionUpdate, BookActionDelete, BookActionClear}
	strings := []string{"ADD", "UPDATE", "DELETE", "CLEAR"}
	for i, a := range actions {
		if !a.IsAvailable() {
			t.Errorf("%s reported unavailable", strings[i])
		}
		if a.String() != strings[i] {
			t.Errorf("action %d String() = %s, want %s", a, a.String(), strings[i])
		}
	}
	if BookAction(0).IsAvailable() || _action_end.IsAvailable() {
		t.Error("sentinel actions reported available")
	}
}

func TestBookType(t *testing.T) {
	if BookTypeL1MBP.String() != "L1_MBP" || BookTypeL2MBP.String() != "L2_MBP" || BookTypeL3MBO.String() != "L3_MBO" {
		t.Error("unexpected book type strings")
	}
	if BookType(0).IsAvailable() || _book_type_end.IsAvailable() {
		t.Error("sentinel book types reported available")
	}
}
