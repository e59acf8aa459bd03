// Command ahttp-fetch is a small smoke-test client, the fetch-side
// analogue of dqx0-protocols/cmd/httpx-echo's echo server: it issues
// one request through ahttp.Session and prints the result, so the
// library's whole resolve-connect-handshake-write-read-redirect path
// can be exercised from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lucidhttp/ahttp"
	"github.com/lucidhttp/ahttp/internal/obs"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:8080/", "URL to fetch")
	method := flag.String("method", "GET", "HTTP method")
	timeout := flag.Duration("timeout", ahttp.DefaultTimeout, "per-request timeout")
	verbose := flag.Bool("v", false, "log connection state transitions")
	flag.Parse()

	var logger obs.Logger = obs.NopLogger{}
	if *verbose {
		logger = obs.StdLogger{L: log.New(os.Stderr, "", log.LstdFlags), Min: obs.Debug}
	}

	sess := &ahttp.Session{Logger: logger, Meter: obs.NopMeter{}}

	fut := sess.AsyncSend(ahttp.RequestOptions{
		URL:     *url,
		Method:  *method,
		Timeout: *timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	resp, err := fut.Wait(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ahttp-fetch:", err)
		os.Exit(1)
	}
	if resp.Err != nil {
		fmt.Fprintln(os.Stderr, "ahttp-fetch:", resp.Err)
		os.Exit(1)
	}

	fmt.Printf("%s %d %s\n", *method, resp.StatusCode, resp.Status)
	for k, vv := range resp.Header {
		for _, v := range vv {
			fmt.Printf("%s: %s\n", k, v)
		}
	}
	fmt.Println()
	os.Stdout.Write(resp.Raw)
}
