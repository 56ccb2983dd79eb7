// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// package station provides the data access layer for ground-motion
// observations. This file contains the MySQL implementation of the Store
// interface. Note: this backend is considered experimental.
package station

import (
	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLStore is the MySQL implementation of the Store interface.
type MySQLStore struct {
	bunStore
}
