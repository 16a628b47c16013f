package backend

import (
	"context"

	"gioui.org/app"
	"git.sr.ht/~gioverse/skel/stream"
)

// WindowState is the per-window view of the backend.
type WindowState struct {
	Bundle
	Controller *stream.Controller
}

func NewWindowState(ctx context.Context, bundle Bundle, win *app.Window) WindowState {
	return WindowState{
		Bundle:     bundle,
		Controller: stream.NewController(ctx, win.Invalidate),
	}
}

// Bundle holds the application-wide backend services.
type Bundle struct {
	Datasource *Datasource
	Store      *KVStore
}

func NewBundle(ds *Datasource, store *KVStore) Bundle {
	return Bundle{
		Datasource: ds,
		Store:      store,
	}
}
