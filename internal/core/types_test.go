package core

import "testing"

func TestKey_String(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{S("StoreFiles"), "StoreFiles"},
		{S("test1.yaml"), "test1.yaml"},
		{I(0), "0"},
		{I(42), "42"},
	}

	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestKey_IsInt(t *testing.T) {
	if S("0").IsInt() {
		t.Error("string key reported as int")
	}
	if !I(0).IsInt() {
		t.Error("int key not reported as int")
	}
}

func TestKeyStrings(t *testing.T) {
	got := KeyStrings([]Key{S("X"), S("file"), S("tar"), I(1)})
	want := []string{"X", "file", "tar", "1"}
	if len(got) != len(want) {
		t.Fatalf("length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d = %q, want %q", i, got[i], want[i])
		}
	}
}
