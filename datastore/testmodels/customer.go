/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testmodels holds typed entities used by tests and the demo command.
package testmodels

import (
	"github.com/go-openapi/strfmt"

	"github.com/suparena/tablestore/entity"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
)

// CustomerEntityType tags Customer rows in mixed-type tables.
const CustomerEntityType = "Customer"

// Customer is a contact keyed by name (partition) and customer number (row).
type Customer struct {

	// Customer number, used as the row key.
	// Required: true
	ID string `json:"Id"`

	// Full name, used as the partition key.
	// Required: true
	Name string `json:"Name"`

	// Format: email
	Email strfmt.Email `json:"Email,omitempty"`

	PhoneNumber string `json:"PhoneNumber,omitempty"`

	// Format: date-time
	LastContact *strfmt.DateTime `json:"LastContact,omitempty"`
}

// CustomerIndexMap derives the table key of a Customer.
var CustomerIndexMap = map[string]string{
	registry.PartitionKeyField: "{Name}",
	registry.RowKeyField:       "{Id}",
}

func init() {
	registry.RegisterIndexMap[Customer](CustomerIndexMap)
	registry.RegisterType(CustomerEntityType, func(e *entity.Entity) (any, error) {
		var c Customer
		if err := entity.ToStruct(e, &c); err != nil {
			return nil, err
		}
		return &c, nil
	})
}

// Validate validates this customer
func (c *Customer) Validate(formats strfmt.Registry) error {
	if c.ID == "" {
		return errors.NewValidationError("Id", "is required")
	}
	if c.Name == "" {
		return errors.NewValidationError("Name", "is required")
	}
	if c.Email != "" && !strfmt.IsEmail(string(c.Email)) {
		return errors.NewValidationError("Email", "is not a valid email address")
	}
	return nil
}
