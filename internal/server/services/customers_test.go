package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const homeJSON = `{"address":"1 Main St","city":"Austin","state":"TX","zipCode":"78701","country":"US"}`

func TestGetCustomer(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada", "pw")

	c, err := f.customers.GetCustomer(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, "ada", c.Username)
	assert.Equal(t, "ada@example.com", c.Email)

	_, err = f.customers.GetCustomer(context.Background(), 4242)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSaveOrUpdateAddress_SaveThenUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ada", "pw")

	err := f.customers.SaveOrUpdateAddress(ctx, AddressRequest{
		CustID:  1001,
		Path:    "address.home",
		Address: json.RawMessage(homeJSON),
	})
	require.NoError(t, err)

	c, err := f.customers.GetCustomer(ctx, 1001)
	require.NoError(t, err)
	require.Contains(t, c.Address, "home")
	assert.Equal(t, "Austin", c.Address["home"].City)
	assert.Equal(t, testNow.Unix(), c.Doc.Modified)
	assert.Equal(t, int64(1001), c.Doc.ModifiedBy)

	err = f.customers.SaveOrUpdateAddress(ctx, AddressRequest{
		CustID:  1001,
		Path:    "address.home",
		Address: json.RawMessage(`{"address":"2 Elm St","city":"Dallas","state":"TX","zipCode":"75201","country":"US"}`),
		Update:  true,
	})
	require.NoError(t, err)

	c, err = f.customers.GetCustomer(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "Dallas", c.Address["home"].City)
}

func TestSaveOrUpdateAddress_RootPathTakesMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ada", "pw")

	body := `{"home":` + homeJSON + `,"work":` + homeJSON + `}`
	require.NoError(t, f.customers.SaveOrUpdateAddress(ctx, AddressRequest{
		CustID: 1001, Path: "address.", Address: json.RawMessage(body),
	}))

	c, err := f.customers.GetCustomer(ctx, 1001)
	require.NoError(t, err)
	assert.Len(t, c.Address, 2)
}

func TestSaveOrUpdateAddress_Conflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ada", "pw")
	require.NoError(t, f.customers.SaveOrUpdateAddress(ctx, AddressRequest{
		CustID: 1001, Path: "address.home", Address: json.RawMessage(homeJSON),
	}))

	err := f.customers.SaveOrUpdateAddress(ctx, AddressRequest{
		CustID: 1001, Path: "address.home", Address: json.RawMessage(homeJSON),
	})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	err = f.customers.SaveOrUpdateAddress(ctx, AddressRequest{
		CustID: 1001, Path: "address.work", Address: json.RawMessage(homeJSON), Update: true,
	})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = f.customers.SaveOrUpdateAddress(ctx, AddressRequest{
		CustID: 9999, Path: "address.home", Address: json.RawMessage(homeJSON),
	})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSaveOrUpdateAddress_Validation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ada", "pw")

	tests := []struct {
		name    string
		path    string
		address string
	}{
		{"empty body", "address.home", ""},
		{"foreign path", "mainPhone", homeJSON},
		{"nested label", "address.home.city", homeJSON},
		{"bad json", "address.home", `{"city":`},
		{"empty map", "address", `{}`},
		{"map label with dot", "address", `{"a.b":` + homeJSON + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.address != "" {
				raw = json.RawMessage(tt.address)
			}
			err := f.customers.SaveOrUpdateAddress(context.Background(), AddressRequest{
				CustID: 1001, Path: tt.path, Address: raw,
			})
			if !errors.Is(err, common.ErrorValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseAddresses_SingleLabel(t *testing.T) {
	got, err := parseAddresses(" address.work ", json.RawMessage(homeJSON))
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Address{"work": {
		Address: "1 Main St", City: "Austin", State: "TX", ZipCode: "78701", Country: "US",
	}}, got)
}
