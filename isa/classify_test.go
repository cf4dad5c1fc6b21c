package isa

import "testing"

func TestClassifyKnownPrimaryOp(t *testing.T) {
	w := encode(uint8(OpAddIU), 4, 2, 0, 0, 0)
	op, _, isSpecial, err := Classify(w)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if isSpecial {
		t.Fatal("addiu classified as Special")
	}
	if op != OpAddIU {
		t.Fatalf("op = %v, want addiu", op)
	}
}

func TestClassifyKnownSpecial(t *testing.T) {
	w := encode(0x00, 5, 6, 7, 0, uint8(FnAddu))
	op, funct, isSpecial, err := Classify(w)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if !isSpecial || op != OpSpecial || funct != FnAddu {
		t.Fatalf("got op=%v funct=%v isSpecial=%v, want Special/addu/true", op, funct, isSpecial)
	}
}

func TestClassifyUnknownOp(t *testing.T) {
	w := encode(0x3F, 0, 0, 0, 0, 0) // 0x3f is not in the table
	_, _, _, err := Classify(w)
	var target *UnknownEncodingError
	if err == nil {
		t.Fatal("expected UnknownEncodingError, got nil")
	}
	if !asUnknownEncoding(err, &target) {
		t.Fatalf("error is not *UnknownEncodingError: %v", err)
	}
	if target.HasFunct {
		t.Fatal("HasFunct should be false for a primary-op miss")
	}
}

func TestClassifyUnknownFunct(t *testing.T) {
	w := encode(0x00, 0, 0, 0, 0, 0x3F) // funct 0x3f is not in the table
	_, _, _, err := Classify(w)
	var target *UnknownEncodingError
	if err == nil {
		t.Fatal("expected UnknownEncodingError, got nil")
	}
	if !asUnknownEncoding(err, &target) {
		t.Fatalf("error is not *UnknownEncodingError: %v", err)
	}
	if !target.HasFunct {
		t.Fatal("HasFunct should be true for a Special/funct miss")
	}
}

func asUnknownEncoding(err error, target **UnknownEncodingError) bool {
	e, ok := err.(*UnknownEncodingError)
	if ok {
		*target = e
	}
	return ok
}
