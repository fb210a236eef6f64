package backend

import (
	"fmt"

	"smartbudget/internal/config"
	gsheet "smartbudget/internal/sheets/google"
)

// FromAppConfig builds a source config for location using the application
// defaults. For sheets sources location is the spreadsheet ID and may be
// empty to use the configured one.
func FromAppConfig(appConfig *config.Config, sourceType SourceType, location string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	if !sourceType.IsValid() {
		return Config{}, fmt.Errorf("invalid source type: %s", sourceType)
	}

	cfg := Config{Type: sourceType}
	switch sourceType {
	case FileSource:
		cfg.Path = location
	case InlineSource:
		cfg.Inline = location
	case SheetsSource:
		cfg.Google = gsheet.Config{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			Sheet:           appConfig.GoogleSheetName,
			Range:           appConfig.GoogleSheetRange,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
		}
		if location != "" {
			cfg.Google.SpreadsheetID = location
		}
	}
	return cfg, nil
}

// Validate validates the source configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid source type: %s", c.Type)
	}

	switch c.Type {
	case FileSource:
		if c.Path == "" {
			return fmt.Errorf("file path is required for file source")
		}
	case InlineSource:
		if c.Inline == "" {
			return fmt.Errorf("inline data is required for inline source")
		}
	case SheetsSource:
		if c.Google.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets source")
		}
		if c.Google.CredentialsJSON == "" && c.Google.CredentialsFile == "" {
			return fmt.Errorf("service account credentials are required for sheets source")
		}
	}

	return nil
}

// GetSourceTypes returns all valid source types
func GetSourceTypes() []SourceType {
	return []SourceType{FileSource, SheetsSource, InlineSource}
}

// GetSourceTypeStrings returns all valid source type strings
func GetSourceTypeStrings() []string {
	types := GetSourceTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
