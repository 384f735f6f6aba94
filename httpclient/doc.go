// Package httpclient is the outbound HTTP client a node uses to call its
// dependencies.
//
// Every failure is returned as an *Error classified as a timeout, a
// connection failure, or by response status. ToAppError maps that
// classification onto the node's error codes.
//
//	client, err := httpclient.New(httpclient.Config{Timeout: 3 * time.Second})
//	resp, err := client.Get(ctx, "http://10.0.0.7:5000/", headers)
package httpclient
