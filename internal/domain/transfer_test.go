package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestTransferRequestValidate(t *testing.T) {
	sourceID := uuid.New()

	tests := []struct {
		name    string
		req     TransferRequest
		wantErr error
	}{
		{
			name: "valid internal",
			req: TransferRequest{
				SourceAccountID:          sourceID,
				TransferType:             TransferTypeInternal,
				Amount:                   decimal.NewFromInt(100),
				DestinationAccountNumber: "1000000002",
			},
		},
		{
			name: "valid zelle send",
			req: TransferRequest{
				SourceAccountID:  sourceID,
				TransferType:     TransferTypeZelleSend,
				Amount:           decimal.NewFromInt(50),
				RecipientContact: "user@example.com",
			},
		},
		{
			name: "valid zelle request",
			req: TransferRequest{
				SourceAccountID:  sourceID,
				TransferType:     TransferTypeZelleRequest,
				Amount:           decimal.NewFromInt(25),
				RecipientContact: "5551234567",
			},
		},
		{
			name: "valid domestic external",
			req: TransferRequest{
				SourceAccountID: sourceID,
				TransferType:    TransferTypeDomesticExternal,
				Amount:          decimal.NewFromInt(900),
				RecipientName:   "Jordan Avery",
				BankName:        "First Harbor Bank",
				RoutingDetail:   "021000021",
			},
		},
		{
			name: "valid international without routing detail",
			req: TransferRequest{
				SourceAccountID: sourceID,
				TransferType:    TransferTypeInternational,
				Amount:          decimal.NewFromInt(300),
				RecipientName:   "Ana Souza",
				BankName:        "Banco Central",
			},
		},
		{
			name: "missing source",
			req: TransferRequest{
				TransferType:             TransferTypeInternal,
				Amount:                   decimal.NewFromInt(10),
				DestinationAccountNumber: "1000000002",
			},
			wantErr: ErrMissingSource,
		},
		{
			name: "unknown type",
			req: TransferRequest{
				SourceAccountID: sourceID,
				TransferType:    TransferType("wire"),
				Amount:          decimal.NewFromInt(10),
			},
			wantErr: ErrInvalidTransferType,
		},
		{
			name: "zero amount",
			req: TransferRequest{
				SourceAccountID:          sourceID,
				TransferType:             TransferTypeInternal,
				Amount:                   decimal.Zero,
				DestinationAccountNumber: "1000000002",
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "negative amount",
			req: TransferRequest{
				SourceAccountID:          sourceID,
				TransferType:             TransferTypeInternal,
				Amount:                   decimal.NewFromInt(-5),
				DestinationAccountNumber: "1000000002",
			},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "internal missing destination",
			req: TransferRequest{
				SourceAccountID: sourceID,
				TransferType:    TransferTypeInternal,
				Amount:          decimal.NewFromInt(10),
			},
			wantErr: ErrMissingDestination,
		},
		{
			name: "zelle missing contact",
			req: TransferRequest{
				SourceAccountID: sourceID,
				TransferType:    TransferTypeZelleSend,
				Amount:          decimal.NewFromInt(10),
			},
			wantErr: ErrMissingContact,
		},
		{
			name: "external missing beneficiary",
			req: TransferRequest{
				SourceAccountID: sourceID,
				TransferType:    TransferTypeInternational,
				Amount:          decimal.NewFromInt(10),
				RecipientName:   "Ana Souza",
			},
			wantErr: ErrMissingBeneficiary,
		},
		{
			name: "internal with zelle contact",
			req: TransferRequest{
				SourceAccountID:          sourceID,
				TransferType:             TransferTypeInternal,
				Amount:                   decimal.NewFromInt(10),
				DestinationAccountNumber: "1000000002",
				RecipientContact:         "user@example.com",
			},
			wantErr: ErrVariantMismatch,
		},
		{
			name: "zelle with destination account",
			req: TransferRequest{
				SourceAccountID:          sourceID,
				TransferType:             TransferTypeZelleSend,
				Amount:                   decimal.NewFromInt(10),
				RecipientContact:         "user@example.com",
				DestinationAccountNumber: "1000000002",
			},
			wantErr: ErrVariantMismatch,
		},
		{
			name: "external with zelle contact",
			req: TransferRequest{
				SourceAccountID:  sourceID,
				TransferType:     TransferTypeDomesticExternal,
				Amount:           decimal.NewFromInt(10),
				RecipientName:    "Jordan Avery",
				BankName:         "First Harbor Bank",
				RecipientContact: "user@example.com",
			},
			wantErr: ErrVariantMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected valid request, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTransferRequestValidate_AmountPrecision(t *testing.T) {
	req := TransferRequest{
		SourceAccountID:          uuid.New(),
		TransferType:             TransferTypeInternal,
		DestinationAccountNumber: "1000000002",
	}

	req.Amount = dec(t, "10.999")
	if err := req.Validate(); !errors.Is(err, ErrAmountPrecision) {
		t.Fatalf("expected ErrAmountPrecision for three decimal places, got %v", err)
	}

	req.Amount = dec(t, "10.99")
	if err := req.Validate(); err != nil {
		t.Fatalf("expected two decimal places to validate, got %v", err)
	}
}

func TestTransferRequestVariantPredicates(t *testing.T) {
	if !(TransferRequest{TransferType: TransferTypeZelleSend}).IsZelle() {
		t.Fatal("zelle_send must be zelle")
	}
	if !(TransferRequest{TransferType: TransferTypeZelleRequest}).IsZelle() {
		t.Fatal("zelle_request must be zelle")
	}
	if (TransferRequest{TransferType: TransferTypeInternal}).IsZelle() {
		t.Fatal("internal must not be zelle")
	}
	if !(TransferRequest{TransferType: TransferTypeDomesticExternal}).IsExternal() {
		t.Fatal("domestic_external must be external")
	}
	if !(TransferRequest{TransferType: TransferTypeInternational}).IsExternal() {
		t.Fatal("international must be external")
	}
	if (TransferRequest{TransferType: TransferTypeZelleSend}).IsExternal() {
		t.Fatal("zelle_send must not be external")
	}
}
