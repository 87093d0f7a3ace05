// Package mock provides an in-memory gateway for tests.
//
//	gw := mock.New()
//	gw.On("get", "http://api.example.com/users/1").Reply(200, map[string]any{"id": 1})
//	cli, err := client.New(def, &config.Config{Gateway: mock.Factory(gw)})
//
// Requests are matched against the registered mocks in registration order.
// A request no mock matches fails with an error naming it.
package mock
