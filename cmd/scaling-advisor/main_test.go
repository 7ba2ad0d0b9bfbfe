package main

import (
	"context"
	"testing"

	"github.com/opscart/k8s-scaling-advisor/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseApps(t *testing.T) {
	refs, err := parseApps([]string{"shop/cart", "search", " billing / invoices "}, "default-ns")
	require.NoError(t, err)
	assert.Equal(t, []models.ApplicationRef{
		{Name: "cart", Namespace: "shop"},
		{Name: "search", Namespace: "default-ns"},
		{Name: "invoices", Namespace: "billing"},
	}, refs)
}

func TestParseApps_Invalid(t *testing.T) {
	for _, v := range []string{"cart", "shop/", "/cart", ""} {
		_, err := parseApps([]string{v}, "")
		assert.Error(t, err, v)
	}
}

func TestRunSuggest_DeploymentNameNeedsSingleApp(t *testing.T) {
	err := runSuggest(context.Background(), &suggestOptions{
		apps: []string{"shop/cart", "shop/search"},
		dc:   models.DeploymentContext{DeploymentName: "cart-v2"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single --app")
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"suggest", "serve", "history", "export"} {
		assert.True(t, names[want], want)
	}

	suggest, _, err := root.Find([]string{"suggest"})
	require.NoError(t, err)
	assert.NotNil(t, suggest.Flags().Lookup("save"))
	assert.NotNil(t, suggest.Flags().Lookup("app"))
}
