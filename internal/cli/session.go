package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/pkg/session"
)

// sessionManager opens the configured store wrapped in a manager. Session
// commands work directly on the store; no system load is needed.
func sessionManager(opts StoreOptions) (*session.Manager, error) {
	store, locker, err := openStore(opts)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("session commands need a store backend (--store)")
	}
	mgrOpts := []session.Option{session.WithLogger(logging.NewNop())}
	if locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(locker))
	}
	return session.NewManager(store, mgrOpts...), nil
}

// ListSessions prints one line per persisted session.
func ListSessions(opts StoreOptions) error {
	mgr, err := sessionManager(opts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	ids, err := mgr.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		printSystemMessage("No sessions.")
		return nil
	}

	for _, id := range ids {
		sess, err := mgr.Load(ctx, id)
		if err != nil {
			fmt.Printf("%s  (unreadable: %v)\n", id, err)
			continue
		}
		fmt.Printf("%s  %-10s %-20s %s\n", sess.ID, sess.Status, sess.FlowID, sess.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// ShowSession dumps one session as indented JSON.
func ShowSession(opts StoreOptions, id string) error {
	mgr, err := sessionManager(opts)
	if err != nil {
		return err
	}

	sess, err := mgr.Load(context.Background(), id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sess)
}

// DeleteSession removes one persisted session.
func DeleteSession(opts StoreOptions, id string) error {
	mgr, err := sessionManager(opts)
	if err != nil {
		return err
	}
	if err := mgr.Delete(context.Background(), id); err != nil {
		return err
	}
	printSystemMessage("Session '%s' deleted.", id)
	return nil
}
