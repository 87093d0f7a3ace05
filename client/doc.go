// Package client builds callable clients from manifest definitions.
//
//	cli, err := client.New(def, config.Default())
//	if err != nil {
//	    return err
//	}
//	resp, err := cli.Call(ctx, "User", "byId", transport.Params{"id": 1})
//
// Every call builds a request from the method descriptor and the params,
// creates a fresh middleware stack and runs it around the client's gateway.
package client
