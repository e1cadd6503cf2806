/*
Package wallet keeps the per-user balance the switch signs offline tokens
against.

Usage:

	svc := wallet.NewService(store, logger, wallet.Config{})

	// Seed or overwrite a balance
	w, err := svc.SetBalance(ctx, "user_1", decimal.NewFromInt(250), "MYR")

	// Read it back; unknown users fail with errors.ErrWalletNotFound
	balance, err := svc.GetBalance(ctx, "user_1")

Balances are never negative. A change in balance invalidates the signature
of every offline token issued before it.
*/
package wallet
