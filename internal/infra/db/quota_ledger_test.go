package db

import (
	"context"
	"testing"

	"github.com/huseyinwural-lab/ilan-sitesi-1-sub003/internal/domain"

	"gorm.io/gorm"
)

func TestQuotaLedger_RejectsBadArguments(t *testing.T) {
	ledger := NewQuotaLedger(nil, nil)

	cases := []struct {
		name string
		call func() error
	}{
		{"consume without tx", func() error {
			return ledger.Consume(context.Background(), nil, "t1", domain.ResourceActiveListing, 1)
		}},
		{"release without tx", func() error {
			return ledger.Release(context.Background(), nil, "t1", domain.ResourceActiveListing, 1)
		}},
		{"consume zero amount", func() error {
			return ledger.Consume(context.Background(), &gorm.DB{}, "t1", domain.ResourceActiveListing, 0)
		}},
		{"release negative amount", func() error {
			return ledger.Release(context.Background(), &gorm.DB{}, "t1", domain.ResourceActiveListing, -1)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.call(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
