package epargne

import (
	"database/sql"
	"strings"
)

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func normalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func normalizeAssetType(assetType string) string {
	return strings.ToUpper(strings.TrimSpace(assetType))
}

func currencyOrDefault(currency string) string {
	if strings.TrimSpace(currency) == "" {
		return DefaultCurrency
	}
	return normalizeCurrency(currency)
}

func isValidCurrency(currency string) bool {
	currency = normalizeCurrency(currency)
	for _, c := range Currencies {
		if c == currency {
			return true
		}
	}
	return false
}

func isValidTransactionType(t string) bool {
	for _, v := range TransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

func isValidAssetType(t string) bool {
	for _, v := range AssetTypes {
		if v == t {
			return true
		}
	}
	return false
}

// normalizeDecimalString converts a comma decimal separator to a dot.
func normalizeDecimalString(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

func stringPtr(s string) *string {
	return &s
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullInt64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	return &ni.Int64
}
