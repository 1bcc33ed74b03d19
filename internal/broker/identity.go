package broker

import (
	"context"
	"fmt"
)

// StoreIdentityResolver resolves an account id from the Account Store: when
// the user has exactly one linked account there is nothing ambiguous to ask
// the client for.
type StoreIdentityResolver struct {
	Accounts AccountStore
}

func (r *StoreIdentityResolver) ResolveAccountID(ctx context.Context, userID string) (string, error) {
	recs, err := r.Accounts.List(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(recs) != 1 {
		return "", fmt.Errorf("cannot resolve external account: %d linked", len(recs))
	}
	return recs[0].AccountID, nil
}
