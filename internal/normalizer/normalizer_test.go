package normalizer

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  "",
		},
		{
			name:  "payment prefix stripped and lowercased",
			input: "PGTO* CONTA DE LUZ",
			want:  "conta de luz",
		},
		{
			name:  "prefix only",
			input: "PGTO* ",
			want:  "",
		},
		{
			name:  "prefix after leading whitespace",
			input: "  PGTO* CONTA  ",
			want:  "conta",
		},
		{
			name:  "symbols replaced with spaces",
			input: "COMPRA*SUPERMERCADO#XYZ",
			want:  "compra supermercado xyz",
		},
		{
			name:  "long digit run removed",
			input: "COMPRA SUPERMERCADO XYZ 12345678",
			want:  "compra supermercado xyz",
		},
		{
			name:  "short digit run kept",
			input: "LOJA 123",
			want:  "loja 123",
		},
		{
			name:  "letter-digit reference code removed",
			input: "TED REF20250101 FORNECEDOR",
			want:  "ted fornecedor",
		},
		{
			name:  "digit-letter reference code removed",
			input: "DEPOSITO 123ABC BANCO",
			want:  "deposito banco",
		},
		{
			name:  "whitespace collapsed",
			input: "  UBER    TRIP   ",
			want:  "uber trip",
		},
		{
			name:  "plain description lowercased",
			input: "Supermercado Pão de Açúcar",
			want:  "supermercado pão de açúcar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClean_Deterministic(t *testing.T) {
	input := "PGTO* CONTA DE LUZ 99887766554433"
	first := Clean(input)
	for i := 0; i < 10; i++ {
		if got := Clean(input); got != first {
			t.Fatalf("Clean is not deterministic: %q vs %q", got, first)
		}
	}

	// Cleaning is idempotent: cleaning a cleaned string changes nothing.
	if got := Clean(first); got != first {
		t.Errorf("Clean(Clean(x)) = %q, want %q", got, first)
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "payment prefix stripped with title case",
			input: "PGTO* CONTA DE LUZ",
			want:  "Conta De Luz",
		},
		{
			name:  "supplier name title cased",
			input: "FORNECEDOR XPTO LTDA",
			want:  "Fornecedor Xpto Ltda",
		},
		{
			name:  "already mixed case",
			input: "Netflix.com Assinatura",
			want:  "Netflix.com Assinatura",
		},
		{
			name:  "prefix only",
			input: "PGTO* ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Display(tt.input); got != tt.want {
				t.Errorf("Display(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
