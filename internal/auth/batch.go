package auth

import (
	"context"
	"time"

	"combisales/internal/audit"
	"combisales/internal/obs"
)

// BatchError reports one failed refresh inside a batch run.
type BatchError struct {
	UserID string `json:"userId"`
	Error  string `json:"error"`
}

// BatchSummary is the result of one scheduled refresh run.
// TotalProcessed = Refreshed + Failed always holds.
type BatchSummary struct {
	TotalProcessed int          `json:"totalProcessed"`
	Refreshed      int          `json:"refreshed"`
	Failed         int          `json:"failed"`
	Errors         []BatchError `json:"errors"`
}

// RefreshExpiring proactively refreshes every zoho-linked account whose
// token expires within the batch window. Rows owned by inactive users are
// excluded by the store query and produce no audit entries. Rows are
// processed serially; one row's failure never aborts the run.
func (s *Service) RefreshExpiring(ctx context.Context) (BatchSummary, error) {
	summary := BatchSummary{Errors: []BatchError{}}

	deadline := s.now().Unix() + int64(s.batchWindow/time.Second)
	rows, err := s.store.Accounts(ctx).ListExpiring(ctx, ProviderZoho, deadline)
	if err != nil {
		return summary, err
	}

	for _, row := range rows {
		summary.TotalProcessed++

		tok, err := s.refreshProvider(ctx, row.Account.RefreshToken)
		if err == nil {
			err = s.store.Accounts(ctx).UpdateTokens(ctx, row.Account.Provider, row.Account.UserID, tok.AccessToken, tok.ExpiresAt, s.now().UTC())
		}
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, BatchError{
				UserID: row.Account.UserID,
				Error:  err.Error(),
			})
			s.recorder.Record(ctx, audit.Entry{
				UserID:   row.Account.UserID,
				Email:    row.Email,
				Event:    audit.EventTokenRefreshFailed,
				Provider: row.Account.Provider,
				Metadata: map[string]string{"error": err.Error(), "path": "batch"},
			})
			obs.CountTokenRefresh("batch", "failed")
			continue
		}

		summary.Refreshed++
		s.recorder.Record(ctx, audit.Entry{
			UserID:   row.Account.UserID,
			Email:    row.Email,
			Event:    audit.EventTokenRefreshSuccess,
			Provider: row.Account.Provider,
			Metadata: map[string]string{"path": "batch"},
		})
		obs.CountTokenRefresh("batch", "success")
	}
	return summary, nil
}
