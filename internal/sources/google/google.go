// Package google serves raw ledger records from a Google spreadsheet.
//
// Two tabs are read: a transactions tab and a groups tab. The first row of
// each tab is the header and its cells become the raw record keys, so the
// sheet may use either camelCase or upper-snake column names.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
	"ledgerbook/internal/sources"
)

var _ sources.Source = (*Client)(nil)

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	transactionsSheet string
	groupsSheet       string
}

// Config selects the spreadsheet and tab names.
type Config struct {
	SpreadsheetID     string
	TransactionsSheet string
	GroupsSheet       string
}

// New creates a client on top of svc. Empty sheet names default to
// "Transactions" and "Groups".
func New(svc *gsheet.Service, cfg Config) (*Client, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	c := &Client{
		svc:               svc,
		spreadsheetID:     id,
		transactionsSheet: strings.TrimSpace(cfg.TransactionsSheet),
		groupsSheet:       strings.TrimSpace(cfg.GroupsSheet),
	}
	if c.transactionsSheet == "" {
		c.transactionsSheet = "Transactions"
	}
	if c.groupsSheet == "" {
		c.groupsSheet = "Groups"
	}
	return c, nil
}

// NewFromEnv builds the Sheets service from the environment. A saved user
// token (GOOGLE_OAUTH_TOKEN_FILE plus the OAuth client) takes precedence;
// otherwise service account credentials are read from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := clientOptionsFromEnv(ctx, logger)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, cfg)
}

func clientOptionsFromEnv(ctx context.Context, logger *log.Logger) ([]goption.ClientOption, error) {
	if tokenFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")); tokenFile != "" {
		oc, err := OAuthConfigFromEnv()
		if err != nil {
			return nil, err
		}
		tok, err := LoadToken(tokenFile)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "Using saved OAuth user token", "path", tokenFile)
		return []goption.ClientOption{goption.WithTokenSource(oc.TokenSource(ctx, tok))}, nil
	}
	creds, err := credentialsFromEnv(ctx, logger)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
	}, nil
}

func credentialsFromEnv(ctx context.Context, logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) ListUserTransactions(ctx context.Context, userID string) ([]core.RawRecord, error) {
	recs, err := c.readSheet(ctx, c.transactionsSheet)
	if err != nil {
		return nil, err
	}
	return filter(recs, func(r core.RawRecord) bool {
		return sources.Value(r, sources.UserKeys) == userID && sources.IsPersonal(r)
	}), nil
}

func (c *Client) ListGroups(ctx context.Context, userID string) ([]core.RawRecord, error) {
	recs, err := c.readSheet(ctx, c.groupsSheet)
	if err != nil {
		return nil, err
	}
	return filter(recs, func(r core.RawRecord) bool {
		return sources.Value(r, sources.UserKeys) == userID
	}), nil
}

func (c *Client) ListGroupTransactions(ctx context.Context, groupID string) ([]core.RawRecord, error) {
	recs, err := c.readSheet(ctx, c.transactionsSheet)
	if err != nil {
		return nil, err
	}
	return filter(recs, func(r core.RawRecord) bool {
		return sources.Value(r, sources.GroupKeys) == groupID
	}), nil
}

func (c *Client) readSheet(ctx context.Context, sheet string) ([]core.RawRecord, error) {
	rng := fmt.Sprintf("%s!A:Z", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values), nil
}

func filter(recs []core.RawRecord, keep func(core.RawRecord) bool) []core.RawRecord {
	var out []core.RawRecord
	for _, r := range recs {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
