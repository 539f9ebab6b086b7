package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoryStorePutPresignDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("recibos")
	if err := s.Put(ctx, "a/b.pdf", strings.NewReader("hello"), 5, "application/pdf"); err != nil {
		t.Fatalf("put: %v", err)
	}
	obj, ok := s.Get("a/b.pdf")
	if !ok || string(obj.Data) != "hello" || obj.ContentType != "application/pdf" {
		t.Fatalf("unexpected object %+v ok=%v", obj, ok)
	}
	url, err := s.PresignGet(ctx, "a/b.pdf", time.Minute)
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(url, "memory://recibos/a/b.pdf?expires=") {
		t.Fatalf("unexpected url %q", url)
	}
	if err := s.Delete(ctx, "a/b.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.PresignGet(ctx, "a/b.pdf", time.Minute); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestObjectKeys(t *testing.T) {
	if got := ReceiptKey("GAS123", `C:\fotos\boleta.jpg`); got != "comprobantes/GAS123/boleta.jpg" {
		t.Fatalf("unexpected receipt key %q", got)
	}
	if got := ReceiptKey("GAS123", "  "); got != "comprobantes/GAS123/comprobante" {
		t.Fatalf("unexpected fallback key %q", got)
	}
	if got := ExportKey(3, 2024); got != "exports/2024-03/reporte-2024-03.csv" {
		t.Fatalf("unexpected export key %q", got)
	}
}
