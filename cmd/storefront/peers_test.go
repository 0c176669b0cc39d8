package main

import (
	"bytes"
	"testing"

	"github.com/example/storefront/pkg/discovery"
	"github.com/stretchr/testify/assert"
)

func TestPrintPeers(t *testing.T) {
	var buf bytes.Buffer
	printPeers(&buf, "storefront", nil)
	assert.Equal(t, "no storefront instances registered\n", buf.String())

	buf.Reset()
	printPeers(&buf, "storefront", []*discovery.ServiceInstance{
		{Name: "storefront", Host: "10.0.0.5", Port: 8080},
		{Name: "storefront", Host: "::1", Port: 8081},
	})
	assert.Equal(t, "10.0.0.5:8080\n[::1]:8081\n", buf.String())
}
