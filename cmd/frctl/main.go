// frctl is a small API client for a running flightrec server: inspect
// the chain, verify it, fetch proofs and run the tamper demos.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: frctl [-addr host:port] [-key api-key] <command> [args]

commands:
  status                       chain summary
  events [type]                list events, optionally by type
  append <type> <description>  append an event (needs a lab key)
  verify                       verify the full hash chain
  proof <event-id>             fetch and check a Merkle proof
  register <name> <role>       register a party, prints its API key
  concerns                     list concerns
  mirrors                      mirror status and comparison
  tamper <event-id> <text>     demo: corrupt a stored event
  populate                     demo: seed sample history
  reset                        demo: wipe all state
`)
	os.Exit(2)
}

type client struct {
	base string
	key  string
	http *http.Client
}

func (c *client) do(method, path string, body any) (map[string]any, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if errMsg, ok := payload["error"].(string); ok && payload["ok"] == false {
		return payload, fmt.Errorf("%s %s: %s", method, path, errMsg)
	}
	return payload, nil
}

func dump(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(b))
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	key := flag.String("key", os.Getenv("FLIGHTREC_API_KEY"), "API key (or FLIGHTREC_API_KEY)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	c := &client{
		base: "http://" + *addr,
		key:  *key,
		http: &http.Client{Timeout: 10 * time.Second},
	}

	if err := runCommand(c, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "frctl:", err)
		os.Exit(1)
	}
}

func runCommand(c *client, cmd string, args []string) error {
	switch cmd {
	case "status":
		resp, err := c.do(http.MethodGet, "/api/status", nil)
		if err != nil {
			return err
		}
		dump(resp)

	case "events":
		path := "/api/events"
		if len(args) > 0 {
			path += "?event_type=" + args[0]
		}
		resp, err := c.do(http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		dump(resp["events"])

	case "append":
		if len(args) < 2 {
			return fmt.Errorf("append needs <type> and <description>")
		}
		resp, err := c.do(http.MethodPost, "/api/events", map[string]any{
			"event_type":  args[0],
			"description": args[1],
		})
		if err != nil {
			return err
		}
		dump(resp["event"])

	case "verify":
		resp, err := c.do(http.MethodGet, "/api/verify", nil)
		if err != nil {
			return err
		}
		dump(resp["result"])

	case "proof":
		if len(args) < 1 {
			return fmt.Errorf("proof needs an event id")
		}
		if _, err := strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("event id must be an integer")
		}
		resp, err := c.do(http.MethodGet, "/api/merkle/proof/"+args[0], nil)
		if err != nil {
			return err
		}
		dump(resp)
		verdict, err := c.do(http.MethodPost, "/api/merkle/verify", map[string]any{
			"leaf_hash": resp["leaf_hash"],
			"proof":     resp["proof"],
			"root":      resp["root"],
		})
		if err != nil {
			return err
		}
		fmt.Println("proof valid:", verdict["valid"])

	case "register":
		if len(args) < 2 {
			return fmt.Errorf("register needs <name> and <role>")
		}
		resp, err := c.do(http.MethodPost, "/api/auth/register", map[string]any{
			"name": args[0],
			"role": args[1],
		})
		if err != nil {
			return err
		}
		fmt.Println("api key:", resp["api_key"])

	case "concerns":
		resp, err := c.do(http.MethodGet, "/api/concerns", nil)
		if err != nil {
			return err
		}
		dump(resp["concerns"])

	case "mirrors":
		resp, err := c.do(http.MethodGet, "/api/mirrors", nil)
		if err != nil {
			return err
		}
		dump(resp["mirrors"])
		cmpResp, err := c.do(http.MethodGet, "/api/mirrors/compare", nil)
		if err != nil {
			return err
		}
		dump(cmpResp["comparison"])

	case "tamper":
		if len(args) < 2 {
			return fmt.Errorf("tamper needs <event-id> and <description>")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("event id must be an integer")
		}
		resp, err := c.do(http.MethodPost, "/api/demo/tamper", map[string]any{
			"event_id":    id,
			"description": args[1],
		})
		if err != nil {
			return err
		}
		fmt.Println(resp["message"])

	case "populate":
		resp, err := c.do(http.MethodPost, "/api/demo/populate", nil)
		if err != nil {
			return err
		}
		fmt.Printf("added %v events (%v total)\n", resp["events_added"], resp["total_events"])

	case "reset":
		if _, err := c.do(http.MethodPost, "/api/demo/reset", nil); err != nil {
			return err
		}
		fmt.Println("state reset")

	default:
		usage()
	}
	return nil
}
