/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sas

import (
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	tserrors "github.com/suparena/tablestore/errors"
)

// Permissions is the set of table operations a SAS or stored policy grants.
type Permissions uint8

const (
	Query Permissions = 1 << iota
	Add
	Update
	Delete
)

// All grants every table operation.
const All = Query | Add | Update | Delete

// canonical service order of the permission letters
var permissionLetters = []struct {
	perm   Permissions
	letter byte
	name   string
}{
	{Query, 'r', "Query"},
	{Add, 'a', "Add"},
	{Update, 'u', "Update"},
	{Delete, 'd', "Delete"},
}

// String renders the wire form, e.g. "raud".
func (p Permissions) String() string {
	var b strings.Builder
	for _, l := range permissionLetters {
		if p&l.perm != 0 {
			b.WriteByte(l.letter)
		}
	}
	return b.String()
}

// Has reports whether every permission in q is granted.
func (p Permissions) Has(q Permissions) bool {
	return p&q == q
}

// Names lists the granted permissions by name.
func (p Permissions) Names() []string {
	var names []string
	for _, l := range permissionLetters {
		if p&l.perm != 0 {
			names = append(names, l.name)
		}
	}
	return names
}

// SDK converts the set into the vendor permission struct.
func (p Permissions) SDK() aztables.SASPermissions {
	return aztables.SASPermissions{
		Read:   p.Has(Query),
		Add:    p.Has(Add),
		Update: p.Has(Update),
		Delete: p.Has(Delete),
	}
}

// ParsePermissions accepts the wire form ("raud", any order, any case) or a comma
// separated list of names ("query,add").
func ParsePermissions(s string) (Permissions, error) {
	var p Permissions
	for _, token := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		q, err := parseToken(token)
		if err != nil {
			return 0, err
		}
		p |= q
	}
	return p, nil
}

func parseToken(token string) (Permissions, error) {
	for _, l := range permissionLetters {
		if strings.EqualFold(token, l.name) {
			return l.perm, nil
		}
	}
	var p Permissions
	for i := 0; i < len(token); i++ {
		c := token[i] | 0x20
		found := false
		for _, l := range permissionLetters {
			if c == l.letter {
				p |= l.perm
				found = true
			}
		}
		if !found {
			return 0, tserrors.NewValidationError("permissions", fmt.Sprintf("unknown permission %q", token))
		}
	}
	return p, nil
}
