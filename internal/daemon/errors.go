// SPDX-License-Identifier: MIT

package daemon

import "errors"

var (
	// ErrMissingManager is returned by App.Run without a Manager.
	ErrMissingManager = errors.New("daemon: manager is required")

	// ErrManagerNotStarted is returned when shutting down a manager that never started.
	ErrManagerNotStarted = errors.New("daemon: manager not started")

	// ErrManagerAlreadyStarted is returned by a second Start.
	ErrManagerAlreadyStarted = errors.New("daemon: manager already started")
)
