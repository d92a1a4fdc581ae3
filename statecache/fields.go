package statecache

// Field names of the default schema.
const (
	FieldItemID                  = "itemId"
	FieldInstitutionName         = "institutionName"
	FieldPlaidConnected          = "plaidConnected"
	FieldAccounts                = "accounts"
	FieldAccountsLastFetched     = "accountsLastFetched"
	FieldGoogleAuthenticated     = "googleAuthenticated"
	FieldSheetID                 = "sheetId"
	FieldSheetName               = "sheetName"
	FieldSheetURL                = "sheetUrl"
	FieldSpreadsheets            = "spreadsheets"
	FieldSpreadsheetsLastFetched = "spreadsheetsLastFetched"
	FieldLastSyncTime            = "lastSyncTime"
	FieldLastSyncStatus          = "lastSyncStatus"
	FieldSyncInProgress          = "syncInProgress"
	FieldHasCompletedOnboarding  = "hasCompletedInitialOnboarding"
)

// Categories of cached remote data.
const (
	CategoryAccounts     = "accounts"
	CategorySpreadsheets = "spreadsheets"
)

// ClearedKey is the only key of the change set delivered after Clear.
const ClearedKey = "cleared"

// LastFetchedField names the timestamp field of a category.
func LastFetchedField(category string) string {
	return category + "LastFetched"
}

// Account is a linked bank account as cached from the bank connection.
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName string   `json:"official_name,omitempty"`
	Mask         string   `json:"mask,omitempty"`
	Type         string   `json:"type,omitempty"`
	Subtype      string   `json:"subtype,omitempty"`
	Balances     Balances `json:"balances"`
}

// Balances of an Account. Nil amounts are unknown.
type Balances struct {
	Current         *float64 `json:"current,omitempty"`
	Available       *float64 `json:"available,omitempty"`
	ISOCurrencyCode string   `json:"iso_currency_code,omitempty"`
}

// Spreadsheet is a sync target the user can pick.
type Spreadsheet struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url,omitempty"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
}

// DefaultSchema declares the bank to spreadsheet sync state.
func DefaultSchema() *Schema {
	return MustSchema(
		StringField(FieldItemID),
		StringField(FieldInstitutionName),
		BoolField(FieldPlaidConnected, false),
		JSONField[[]Account](FieldAccounts),
		TimeField(FieldAccountsLastFetched),
		BoolField(FieldGoogleAuthenticated, false),
		StringField(FieldSheetID),
		StringField(FieldSheetName),
		StringField(FieldSheetURL),
		JSONField[[]Spreadsheet](FieldSpreadsheets),
		TimeField(FieldSpreadsheetsLastFetched),
		TimeField(FieldLastSyncTime),
		StringField(FieldLastSyncStatus),
		BoolField(FieldSyncInProgress, false),
		BoolField(FieldHasCompletedOnboarding, false).Preserved(),
	)
}
