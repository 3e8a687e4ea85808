/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"strings"
	"testing"

	tserrors "github.com/suparena/tablestore/errors"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"Customers", true},
		{"Customers1a2b3", true},
		{"abc", true},
		{"ab", false},
		{"1Customers", false},
		{"Customer-Table", false},
		{"Tables", false},
		{strings.Repeat("a", 63), true},
		{strings.Repeat("a", 64), false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTableName(tt.name)
			if tt.valid && err != nil {
				t.Fatalf("expected %q to be valid, got %v", tt.name, err)
			}
			if !tt.valid && !tserrors.IsInvalidArgument(err) {
				t.Fatalf("expected InvalidArgument for %q, got %v", tt.name, err)
			}
		})
	}
}

func TestUpdateModeString(t *testing.T) {
	if Merge.String() != "merge" || Replace.String() != "replace" {
		t.Fatalf("unexpected mode names %s/%s", Merge, Replace)
	}
}
