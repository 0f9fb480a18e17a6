// Package client talks to a kvs server over TCP.
//
// Example:
//
//	c, err := client.Connect(client.WithPort(6969))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	err = c.Set("foo", "bar")
//	val, found, err := c.Get("foo")
package client
