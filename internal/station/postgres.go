// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// package station provides the data access layer for ground-motion
// observations. This file contains the PostgreSQL implementation of the
// Store interface, used when a long-lived shared observation archive is
// wanted instead of per-event sqlite files.
package station

import (
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// PostgresStore is the PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	bunStore
}
