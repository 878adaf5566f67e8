// Package main is the entrypoint for intentctl, the operator client for the
// intents bridge. Every command is a COMMS request/reply against a running
// bridge.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/intentwire/intents-bridge/internal/config"
	"github.com/intentwire/intents-bridge/pkg/channel"
	"github.com/intentwire/intents-bridge/pkg/dispatcher"
	"github.com/intentwire/intents-bridge/pkg/events"
)

const usage = `Usage: intentctl <command> [args]

Commands:
  list                              List registered intents.
  describe <id>                     Show one intent with its discoverability state.
  invoke <id> [json]                Invoke an intent with optional JSON params.
  register <file> --subject <subj>  Register descriptors from a JSON file; invocations forward to <subj>.
  unregister <id>                   Remove a registration.
  donate <id> [json]                Publish a synthetic donation event (wire only; the journal records real invocations).
  suggestions [n]                   Show the top donated intents.
  sync                              Force a shortcut sync and print the bindings.
  health                            Show bridge health.
  manifest                          Fetch the compiled-intent manifest.

Environment: COMMS_URL (default nats://127.0.0.1:4222), INVOKE_SUBJECT, CONTROL_SUBJECT, DONATION_SUBJECT, BRIDGE_REQUEST_TIMEOUT.
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Print(usage)
		return
	}
	cmd := args[0]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("intentctl: load config: %v", err)
	}

	c, err := newClient(cfg)
	if err != nil {
		log.Fatalf("intentctl: %v", err)
	}
	defer c.close()

	switch cmd {
	case "list":
		err = c.control("list", nil)
	case "describe":
		if len(args) < 2 {
			log.Fatalf("intentctl describe: require an intent identifier")
		}
		err = c.control("describe", dispatcher.DescribeInput{Identifier: args[1]})
	case "invoke":
		if len(args) < 2 {
			log.Fatalf("intentctl invoke: require an intent identifier")
		}
		paramsJSON := ""
		if len(args) > 2 {
			paramsJSON = args[2]
		}
		err = c.invoke(args[1], paramsJSON)
	case "register":
		file, subject, perr := parseRegisterArgs(args[1:])
		if perr != nil {
			log.Fatalf("intentctl register: %v", perr)
		}
		err = c.register(file, subject)
	case "unregister":
		if len(args) < 2 {
			log.Fatalf("intentctl unregister: require an intent identifier")
		}
		err = c.control("unregister", dispatcher.UnregisterInput{Identifier: args[1]})
	case "donate":
		if len(args) < 2 {
			log.Fatalf("intentctl donate: require an intent identifier")
		}
		paramsJSON := ""
		if len(args) > 2 {
			paramsJSON = args[2]
		}
		err = c.donate(args[1], paramsJSON)
	case "suggestions":
		limit := 0
		if len(args) > 1 {
			limit, err = strconv.Atoi(args[1])
			if err != nil {
				log.Fatalf("intentctl suggestions: bad limit %q", args[1])
			}
		}
		err = c.control("suggestions", dispatcher.SuggestionsInput{Limit: limit})
	case "sync":
		err = c.control("syncShortcuts", nil)
	case "health":
		err = c.control("health", nil)
	case "manifest":
		err = c.manifest()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("intentctl %s: %v", cmd, err)
	}
}

// parseRegisterArgs splits register arguments into the descriptor file and
// the reply subject.
func parseRegisterArgs(args []string) (file, subject string, err error) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--subject":
			if i+1 >= len(args) {
				return "", "", fmt.Errorf("--subject requires a value")
			}
			subject = args[i+1]
			i++
		default:
			if file == "" {
				file = args[i]
			} else {
				return "", "", fmt.Errorf("unexpected argument %q", args[i])
			}
		}
	}
	if file == "" {
		return "", "", fmt.Errorf("require a descriptor file")
	}
	if subject == "" {
		return "", "", fmt.Errorf("require --subject <subj>")
	}
	return file, subject, nil
}

type client struct {
	nc              *comms.Conn
	invokeSubject   string
	controlSubject  string
	donationSubject string
	timeout         time.Duration
}

func newClient(cfg *config.Config) (*client, error) {
	nc, err := channel.Connect(cfg.COMMSURL, "intentctl")
	if err != nil {
		return nil, err
	}
	invokeSubject := cfg.InvokeSubject
	if invokeSubject == "" {
		invokeSubject = channel.SubjectInvoke
	}
	controlSubject := cfg.ControlSubject
	if controlSubject == "" {
		controlSubject = channel.SubjectControl
	}
	return &client{
		nc:              nc,
		invokeSubject:   invokeSubject,
		controlSubject:  controlSubject,
		donationSubject: cfg.DonationSubject,
		timeout:         cfg.RequestTimeout,
	}, nil
}

func (c *client) close() {
	c.nc.Close()
}

// control sends one control-plane request and prints the result. A non-ok
// response is an error.
func (c *client) control(method string, params any) error {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		raw = data
	}
	req := dispatcher.ControlRequest{ID: uuid.New().String(), Method: method, Params: raw}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	msg, err := c.nc.Request(c.controlSubject, data, c.timeout)
	if err != nil {
		return fmt.Errorf("request %s: %w", method, err)
	}
	var resp dispatcher.ControlResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !resp.Ok {
		detail, _ := json.MarshalIndent(resp.Error, "", "  ")
		return fmt.Errorf("%s failed:\n%s", method, detail)
	}
	return printJSON(resp.Result)
}

func (c *client) invoke(identifier, paramsJSON string) error {
	params := map[string]any{}
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
			return fmt.Errorf("parse params: %w", err)
		}
	}
	req := dispatcher.InvocationRequest{ID: uuid.New().String(), Intent: identifier, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	msg, err := c.nc.Request(c.invokeSubject, data, c.timeout)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", identifier, err)
	}
	var resp dispatcher.InvocationResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return printJSON(resp)
}

func (c *client) register(path, subject string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read descriptor file: %w", err)
	}
	// The file holds either one descriptor object or an array of them.
	var descriptors []map[string]any
	if err := json.Unmarshal(data, &descriptors); err != nil {
		var single map[string]any
		if err := json.Unmarshal(data, &single); err != nil {
			return fmt.Errorf("parse descriptor file: %w", err)
		}
		descriptors = []map[string]any{single}
	}
	return c.control("register", dispatcher.RegisterInput{Descriptors: descriptors, ReplySubject: subject})
}

func (c *client) donate(identifier, paramsJSON string) error {
	params := map[string]any{}
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
			return fmt.Errorf("parse params: %w", err)
		}
	}
	publisher := events.NewCommsPublisher(c.nc, &events.CommsPublisherOpts{DonationSubject: c.donationSubject})
	event := &events.DonationEvent{
		ID:        uuid.New().String(),
		Intent:    identifier,
		Params:    params,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Source:    "intentctl",
	}
	if err := publisher.Donate(context.Background(), event); err != nil {
		return fmt.Errorf("publish donation: %w", err)
	}
	return printJSON(event)
}

func (c *client) manifest() error {
	msg, err := c.nc.Request(channel.SubjectManifest, nil, c.timeout)
	if err != nil {
		return fmt.Errorf("request manifest: %w", err)
	}
	var out any
	if err := json.Unmarshal(msg.Data, &out); err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}
	return printJSON(out)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
