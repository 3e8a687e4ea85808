/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"regexp"
	"strings"

	tserrors "github.com/suparena/tablestore/errors"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{2,62}$`)

// ValidateTableName checks a name against the service's table naming rules.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return tserrors.NewValidationError("table", "must be 3-63 alphanumeric characters starting with a letter")
	}
	if strings.EqualFold(name, "tables") {
		return tserrors.NewValidationError("table", `"tables" is reserved`)
	}
	return nil
}
