// Package main holds the end-to-end suite for routesync against a live
// gateway. The suite is driven by flags and is not part of `go test ./...`;
// it expects a running admin control plane (and optionally a podman socket
// for topology assertions):
//
//	go run ./test/e2e \
//	    -admin-url http://localhost:9180/apisix/admin \
//	    -admin-key "$GATEWAY_ADMIN_KEY" \
//	    -data-url http://localhost:9080
//
// Every route the suite creates carries the "e2e-" id prefix and is removed
// afterwards unless -keep-routes is set.
package main
