package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/urfave/cli"
)

const defaultRPCServer = "localhost:10019"

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[escrowctl] %v\n", err)
	os.Exit(1)
}

// client is a single connection to escrowd's control protocol. Unlike the
// teacher's getClientConn, there is no TLS handshake or gRPC dial here --
// just a line-oriented JSON socket, so the client is this package's own
// thin wrapper rather than a generated stub.
type client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func dial(addr string) (*client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &client{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(bufio.NewReader(conn)),
	}, nil
}

func (c *client) Close() error {
	return c.conn.Close()
}

// call sends method with the given params (and, if non-empty, macaroon)
// and decodes exactly one response line back.
func (c *client) call(method string, macaroon string, params interface{}) (json.RawMessage, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req := struct {
		Method   string          `json:"method"`
		Macaroon string          `json:"macaroon,omitempty"`
		Params   json.RawMessage `json:"params,omitempty"`
	}{Method: method, Macaroon: macaroon, Params: paramsJSON}

	if err := c.enc.Encode(req); err != nil {
		return nil, err
	}

	var resp struct {
		Result json.RawMessage `json:"result,omitempty"`
		Error  string          `json:"error,omitempty"`
	}
	if err := c.dec.Decode(&resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp.Result, nil
}

func getClient(ctx *cli.Context) *client {
	c, err := dial(ctx.GlobalString("rpcserver"))
	if err != nil {
		fatal(err)
	}
	return c
}

func main() {
	app := cli.NewApp()
	app.Name = "escrowctl"
	app.Version = "0.1"
	app.Usage = "control plane for escrowd"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: defaultRPCServer,
			Usage: "host:port of escrowd's control protocol",
		},
		cli.StringFlag{
			Name:  "macaroonpath",
			Value: cleanAndExpandPath("~/.escrowd/admin.macaroon"),
			Usage: "path to the baked admin macaroon",
		},
	}
	app.Commands = []cli.Command{
		createWalletCommand,
		createEscrowSrcCommand,
		createEscrowDstCommand,
		withdrawSrcCommand,
		withdrawDstCommand,
		cancelSrcCommand,
		cancelDstCommand,
		rescueCommand,
		adminBakeCommand,
		adminConfigCommand,
		adminUpdateConfigCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
