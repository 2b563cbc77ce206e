package main

import (
	"bufio"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/fusionswap/escrowd/escrow"
	macaroon "gopkg.in/macaroon.v2"
)

// request is one line of the newline-delimited control protocol: a
// method name, opaque parameters, and (for methods that mutate
// AdminConfig) a base64-encoded macaroon proving the caller holds the
// admin capability.
type request struct {
	Method   string          `json:"method"`
	Macaroon string          `json:"macaroon,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// response is the single JSON object written back for every request,
// exactly one of Result or Error ever populated.
type response struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// rpcServer answers the control protocol over a single listener,
// dispatching each decoded request to the matching ledger method. It is
// the hand-rolled stand-in for the generated lnrpc.LightningServer the
// teacher daemon exposes; see DESIGN.md for why no gRPC stub is
// generated here.
type rpcServer struct {
	ledger *escrow.Ledger
	auth   *escrow.AdminAuthorizer

	listener net.Listener
	quit     chan struct{}
}

func newRPCServer(ledger *escrow.Ledger, auth *escrow.AdminAuthorizer) *rpcServer {
	return &rpcServer{
		ledger: ledger,
		auth:   auth,
		quit:   make(chan struct{}),
	}
}

func (s *rpcServer) Start(network, addr string) error {
	lis, err := net.Listen(network, addr)
	if err != nil {
		return err
	}
	s.listener = lis

	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				select {
				case <-s.quit:
					return
				default:
					rpcsLog.Errorf("accept error: %v", err)
					return
				}
			}
			go s.serveConn(conn)
		}
	}()

	return nil
}

func (s *rpcServer) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *rpcServer) serveConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			enc.Encode(response{Error: fmt.Sprintf("malformed request: %v", err)})
			continue
		}

		result, err := s.dispatch(req)
		if err != nil {
			enc.Encode(response{Error: err.Error()})
			continue
		}
		enc.Encode(response{Result: result})
	}
}

func (s *rpcServer) dispatch(req request) (interface{}, error) {
	switch req.Method {
	case "create_wallet":
		return s.createWallet(req.Params)
	case "create_escrow_src":
		return s.createEscrowSrc(req.Params)
	case "create_escrow_dst":
		return s.createEscrowDst(req.Params)
	case "withdraw_src":
		return s.withdrawSrc(req.Params)
	case "withdraw_dst":
		return s.withdrawDst(req.Params)
	case "cancel_src":
		return s.cancelSrc(req.Params)
	case "cancel_dst":
		return s.cancelDst(req.Params)
	case "rescue":
		return s.rescue(req.Params)
	case "admin_bake":
		return s.adminBake()
	case "admin_config":
		return s.ledger.AdminConfigSnapshot()
	case "admin_update_config":
		return s.adminUpdateConfig(req)
	default:
		return nil, fmt.Errorf("unknown method %q", req.Method)
	}
}

// --- wire helpers -----------------------------------------------------

func parseHash32(s string) (escrow.Hash32, error) {
	var h escrow.Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != escrow.HashSize {
		return h, fmt.Errorf("expected %d bytes, got %d", escrow.HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func parseAccountID(s string) (escrow.AccountID, error) {
	h, err := parseHash32(s)
	return escrow.AccountID(h), err
}

func parseAssetID(s string) (escrow.AssetID, error) {
	h, err := parseHash32(s)
	return escrow.AssetID(h), err
}

func parseObjectID(s string) (escrow.ObjectID, error) {
	h, err := parseHash32(s)
	return escrow.ObjectID(h), err
}

// wireTimelocks mirrors escrow.Timelocks with JSON-friendly duration
// fields (nanoseconds as int64, the same unit time.Duration itself uses).
type wireTimelocks struct {
	DstWithdrawal         time.Duration `json:"dst_withdrawal"`
	DstPublicWithdrawal   time.Duration `json:"dst_public_withdrawal"`
	DstCancellation       time.Duration `json:"dst_cancellation"`
	SrcWithdrawal         time.Duration `json:"src_withdrawal"`
	SrcPublicWithdrawal   time.Duration `json:"src_public_withdrawal"`
	SrcCancellation       time.Duration `json:"src_cancellation"`
	SrcPublicCancellation time.Duration `json:"src_public_cancellation"`
}

func (w wireTimelocks) toTimelocks() escrow.Timelocks {
	return escrow.Timelocks{
		DstWithdrawal:         w.DstWithdrawal,
		DstPublicWithdrawal:   w.DstPublicWithdrawal,
		DstCancellation:       w.DstCancellation,
		SrcWithdrawal:         w.SrcWithdrawal,
		SrcPublicWithdrawal:   w.SrcPublicWithdrawal,
		SrcCancellation:       w.SrcCancellation,
		SrcPublicCancellation: w.SrcPublicCancellation,
	}
}

type wireAuction struct {
	StartUnix         int64         `json:"start_unix"`
	Duration          time.Duration `json:"duration"`
	TakingAmountStart escrow.Balance `json:"taking_amount_start"`
	TakingAmountEnd   escrow.Balance `json:"taking_amount_end"`
}

func (w wireAuction) toAuction() escrow.DutchAuction {
	return escrow.DutchAuction{
		Start:             time.Unix(w.StartUnix, 0).UTC(),
		Duration:          w.Duration,
		TakingAmountStart: w.TakingAmountStart,
		TakingAmountEnd:   w.TakingAmountEnd,
	}
}

// --- method handlers ----------------------------------------------------

type createWalletParams struct {
	Maker          string         `json:"maker"`
	OrderHash      string         `json:"order_hash"`
	Asset          string         `json:"asset"`
	HashlockOrRoot string         `json:"hashlock_or_root"`
	Parts          uint64         `json:"parts"`
	Auction        wireAuction    `json:"auction"`
	Funding        escrow.Balance `json:"funding"`
}

func (s *rpcServer) createWallet(raw json.RawMessage) (interface{}, error) {
	var p createWalletParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	maker, err := parseAccountID(p.Maker)
	if err != nil {
		return nil, fmt.Errorf("maker: %w", err)
	}
	orderHash, err := parseHash32(p.OrderHash)
	if err != nil {
		return nil, fmt.Errorf("order_hash: %w", err)
	}
	asset, err := parseAssetID(p.Asset)
	if err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}
	root, err := parseHash32(p.HashlockOrRoot)
	if err != nil {
		return nil, fmt.Errorf("hashlock_or_root: %w", err)
	}

	return s.ledger.CreateWallet(
		maker, orderHash, asset, root,
		escrow.PartsAmount(p.Parts), p.Auction.toAuction(), p.Funding,
	)
}

type escrowParamsWire struct {
	Taker         string        `json:"taker"`
	Resolver      string        `json:"resolver"`
	SafetyDeposit escrow.Balance `json:"safety_deposit"`
	Timelocks     wireTimelocks `json:"timelocks"`
	SecretHash    string        `json:"secret_hash,omitempty"`
	SecretIndex   uint64        `json:"secret_index,omitempty"`
	Proof         []string      `json:"proof,omitempty"`
}

func (w escrowParamsWire) toParams() (escrow.EscrowParams, error) {
	taker, err := parseAccountID(w.Taker)
	if err != nil {
		return escrow.EscrowParams{}, fmt.Errorf("taker: %w", err)
	}
	resolver, err := parseAccountID(w.Resolver)
	if err != nil {
		return escrow.EscrowParams{}, fmt.Errorf("resolver: %w", err)
	}

	var secretHash escrow.Hash32
	if w.SecretHash != "" {
		secretHash, err = parseHash32(w.SecretHash)
		if err != nil {
			return escrow.EscrowParams{}, fmt.Errorf("secret_hash: %w", err)
		}
	}

	proof := make([]escrow.Hash32, len(w.Proof))
	for i, node := range w.Proof {
		h, err := parseHash32(node)
		if err != nil {
			return escrow.EscrowParams{}, fmt.Errorf("proof[%d]: %w", i, err)
		}
		proof[i] = h
	}

	return escrow.EscrowParams{
		Taker:         taker,
		Resolver:      resolver,
		SafetyDeposit: w.SafetyDeposit,
		Timelocks:     w.Timelocks.toTimelocks(),
		SecretHash:    secretHash,
		SecretIndex:   w.SecretIndex,
		Proof:         proof,
	}, nil
}

type createEscrowSrcParams struct {
	WalletID             string           `json:"wallet_id"`
	FillAmount           escrow.Balance   `json:"fill_amount"`
	OfferedTakingAmount  escrow.Balance   `json:"offered_taking_amount"`
	Params               escrowParamsWire `json:"params"`
}

func (s *rpcServer) createEscrowSrc(raw json.RawMessage) (interface{}, error) {
	var p createEscrowSrcParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	walletID, err := parseObjectID(p.WalletID)
	if err != nil {
		return nil, fmt.Errorf("wallet_id: %w", err)
	}
	params, err := p.Params.toParams()
	if err != nil {
		return nil, err
	}
	return s.ledger.CreateEscrowSrc(walletID, p.FillAmount, p.OfferedTakingAmount, params)
}

type createEscrowDstParams struct {
	OrderHash         string           `json:"order_hash"`
	Asset             string           `json:"asset"`
	Hashlock          string           `json:"hashlock"`
	Amount            escrow.Balance   `json:"amount"`
	Maker             string           `json:"maker"`
	SrcCancellationTS int64            `json:"src_cancellation_ts"`
	Params            escrowParamsWire `json:"params"`
}

func (s *rpcServer) createEscrowDst(raw json.RawMessage) (interface{}, error) {
	var p createEscrowDstParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	orderHash, err := parseHash32(p.OrderHash)
	if err != nil {
		return nil, fmt.Errorf("order_hash: %w", err)
	}
	asset, err := parseAssetID(p.Asset)
	if err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}
	hashlock, err := parseHash32(p.Hashlock)
	if err != nil {
		return nil, fmt.Errorf("hashlock: %w", err)
	}
	maker, err := parseAccountID(p.Maker)
	if err != nil {
		return nil, fmt.Errorf("maker: %w", err)
	}
	if p.SrcCancellationTS <= 0 {
		return nil, fmt.Errorf("src_cancellation_ts: must be a positive unix timestamp")
	}
	srcCancellationTS := time.Unix(p.SrcCancellationTS, 0).UTC()
	params, err := p.Params.toParams()
	if err != nil {
		return nil, err
	}
	return s.ledger.CreateEscrowDst(orderHash, asset, hashlock, p.Amount, maker, srcCancellationTS, params)
}

type settlementParams struct {
	EscrowID string `json:"escrow_id"`
	Caller   string `json:"caller"`
	Secret   string `json:"secret,omitempty"`
}

func (s *rpcServer) withdrawSrc(raw json.RawMessage) (interface{}, error) {
	id, caller, secret, err := parseSettlement(raw)
	if err != nil {
		return nil, err
	}
	return s.ledger.WithdrawSrc(id, caller, secret)
}

func (s *rpcServer) withdrawDst(raw json.RawMessage) (interface{}, error) {
	id, caller, secret, err := parseSettlement(raw)
	if err != nil {
		return nil, err
	}
	return s.ledger.WithdrawDst(id, caller, secret)
}

func (s *rpcServer) cancelSrc(raw json.RawMessage) (interface{}, error) {
	id, caller, _, err := parseSettlement(raw)
	if err != nil {
		return nil, err
	}
	return s.ledger.CancelSrc(id, caller)
}

func (s *rpcServer) cancelDst(raw json.RawMessage) (interface{}, error) {
	id, caller, _, err := parseSettlement(raw)
	if err != nil {
		return nil, err
	}
	return s.ledger.CancelDst(id, caller)
}

func parseSettlement(raw json.RawMessage) (escrow.ObjectID, escrow.AccountID, []byte, error) {
	var p settlementParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return escrow.ObjectID{}, escrow.AccountID{}, nil, err
	}
	id, err := parseObjectID(p.EscrowID)
	if err != nil {
		return escrow.ObjectID{}, escrow.AccountID{}, nil, fmt.Errorf("escrow_id: %w", err)
	}
	caller, err := parseAccountID(p.Caller)
	if err != nil {
		return escrow.ObjectID{}, escrow.AccountID{}, nil, fmt.Errorf("caller: %w", err)
	}
	var secret []byte
	if p.Secret != "" {
		secret, err = hex.DecodeString(p.Secret)
		if err != nil {
			return escrow.ObjectID{}, escrow.AccountID{}, nil, fmt.Errorf("secret: %w", err)
		}
	}
	return id, caller, secret, nil
}

type rescueParams struct {
	ObjectID string `json:"object_id"`
	Rescuer  string `json:"rescuer"`
}

func (s *rpcServer) rescue(raw json.RawMessage) (interface{}, error) {
	var p rescueParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	id, err := parseObjectID(p.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("object_id: %w", err)
	}
	rescuer, err := parseAccountID(p.Rescuer)
	if err != nil {
		return nil, fmt.Errorf("rescuer: %w", err)
	}
	return s.ledger.Rescue(id, rescuer)
}

func (s *rpcServer) adminBake() (interface{}, error) {
	m, err := s.auth.Bake()
	if err != nil {
		return nil, err
	}
	enc, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return map[string]string{"macaroon": base64.StdEncoding.EncodeToString(enc)}, nil
}

type adminUpdateConfigParams struct {
	RescueDelay      time.Duration  `json:"rescue_delay"`
	MinSafetyDeposit escrow.Balance `json:"min_safety_deposit"`
}

func (s *rpcServer) adminUpdateConfig(req request) (interface{}, error) {
	raw, err := base64.StdEncoding.DecodeString(req.Macaroon)
	if err != nil {
		return nil, fmt.Errorf("macaroon: %w", err)
	}
	var m macaroon.Macaroon
	if err := m.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("macaroon: %w", err)
	}

	var p adminUpdateConfigParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, err
	}

	cfg := escrow.AdminConfig{
		RescueDelay:      p.RescueDelay,
		MinSafetyDeposit: p.MinSafetyDeposit,
	}
	if err := s.ledger.UpdateAdminConfig(s.auth, &m, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
