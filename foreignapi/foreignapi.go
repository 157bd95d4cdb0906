// Package foreignapi implements the public JSON-RPC 2.0 surface of
// spec.md section 4.J: one endpoint per invoice, at
// "/<url>/v2/foreign", that a paying wallet speaks to in order to
// learn this daemon's payment-proof address and exchange Slatepacks.
// Grounded on the teacher's lnrpc REST gateway error-mapping shape
// (one JSON-RPC error code per failure class) adapted from gRPC status
// codes to the fixed -326xx table spec.md calls for.
package foreignapi

import (
	"compress/gzip"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/btcsuite/btclog"

	"github.com/mwc-pay/mwcpayd/callback"
	"github.com/mwc-pay/mwcpayd/errkind"
	"github.com/mwc-pay/mwcpayd/paystore"
	"github.com/mwc-pay/mwcpayd/slate"
	"github.com/mwc-pay/mwcpayd/slatepack"
	"github.com/mwc-pay/mwcpayd/wallet"
)

var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}

const (
	foreignAPIVersion = 2
	maxBodyBytes      = 1 << 20

	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Server handles the per-invoice JSON-RPC endpoint. One Server is shared
// across every invoice; the invoice slug is read from the request path.
type Server struct {
	store    paystore.Store
	wallet   *wallet.Wallet
	mainnet  bool
	callback *callback.Driver
}

// New constructs a Server.
func New(store paystore.Store, w *wallet.Wallet, mainnet bool, cb *callback.Driver) *Server {
	return &Server{store: store, wallet: w, mainnet: mainnet, callback: cb}
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

// cutForeignPath splits "/<slug>/v2/foreign" into slug, reporting
// whether the path matched the expected shape.
func cutForeignPath(path string) (string, bool) {
	const suffix = "/v2/foreign"
	if !strings.HasSuffix(path, suffix) {
		return "", false
	}
	slug := strings.TrimSuffix(path, suffix)
	slug = strings.TrimPrefix(slug, "/")
	if slug == "" || strings.Contains(slug, "/") {
		return "", false
	}
	return slug, true
}

func acceptsJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// ServeHTTP dispatches one JSON-RPC request against the invoice named by
// the request path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slug, ok := cutForeignPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !acceptsJSON(r.Header.Get("Content-Type")) {
		http.Error(w, "content-type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed reading request body", http.StatusBadRequest)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil || req.JSONRPC != "2.0" || req.Method == "" {
		s.writeResult(w, r, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeInvalidRequest, Message: "malformed json-rpc request"},
		})
		return
	}

	payment, err := s.store.GetReceivingPaymentForURL(slug)
	if err != nil || payment == nil {
		s.writeResult(w, r, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeInvalidParams, Message: "unknown or already-settled invoice"},
		})
		return
	}

	result, rpcErr := s.dispatch(req.Method, req.Params, payment)
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	s.writeResult(w, r, resp)
}

func (s *Server) dispatch(method string, params []json.RawMessage, p *paystore.Payment) (interface{}, *rpcError) {
	switch method {
	case "check_version":
		return map[string]interface{}{
			"foreign_api_version":     foreignAPIVersion,
			"supported_slate_versions": []string{"SP"},
		}, nil
	case "get_proof_address":
		addr, err := s.wallet.TorPaymentProofAddress(p.UniqueNumber)
		if err != nil {
			log.Errorf("deriving proof address for payment %d: %v", p.ID, err)
			return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
		}
		return addr, nil
	case "receive_tx":
		return s.receiveTx(params, p)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "unknown method: " + method}
	}
}

func priceOf(p *paystore.Payment) uint64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

func (s *Server) receiveTx(params []json.RawMessage, p *paystore.Payment) (interface{}, *rpcError) {
	if len(params) < 1 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "receive_tx requires a slatepack argument"}
	}
	var armored string
	if err := json.Unmarshal(params[0], &armored); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "receive_tx's first argument must be a string"}
	}

	slateBytes, senderProofKey, err := slatepack.DecodeEncrypted(s.wallet, p.UniqueNumber, armored)
	if err != nil {
		slateBytes, err = slatepack.DecodePlain(armored)
		if err != nil {
			return nil, &rpcError{Code: codeInvalidParams, Message: "invalid slatepack"}
		}
		senderProofKey = nil
	}

	parsed, err := slate.ParseSendInitial(slateBytes, s.mainnet)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}

	result, err := slate.Receive(s.wallet, parsed, slate.Invoice{Index: p.UniqueNumber, Price: priceOf(p)})
	if err != nil {
		if errkind.Is(err, errkind.Conflict) || errkind.Is(err, errkind.InvalidInput) {
			return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
		}
		log.Errorf("receive_tx for payment %d: %v", p.ID, err)
		return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
	}

	if p.ReceivedCallback != nil {
		notice := callback.ReceivedNotice{
			ID:                             p.ID,
			Price:                          parsed.Amount,
			SenderPaymentProofAddress:      result.SenderProofAddress,
			KernelCommitment:               hex.EncodeToString(result.KernelCommitment[:]),
			RecipientPaymentProofSignature: hex.EncodeToString(result.RecipientProofSignature),
		}
		if err := s.callback.FireReceived(*p.ReceivedCallback, notice); err != nil {
			log.Errorf("received callback for payment %d failed, aborting receive: %v", p.ID, err)
			return nil, &rpcError{Code: codeInternalError, Message: "received callback delivery failed"}
		}
	}

	partial := result.Response.Participants[0].PartialSig
	if err := s.store.SetPaymentReceived(p.ID, paystore.ReceivedParams{
		Price:                          parsed.Amount,
		SenderPaymentProofAddress:      result.SenderProofAddress,
		KernelCommitment:               hex.EncodeToString(result.KernelCommitment[:]),
		SenderPublicBlindExcess:        hex.EncodeToString(result.SenderPubBlindExcess[:]),
		RecipientPartialSignature:      hex.EncodeToString(partial[:]),
		PublicNonceSum:                 hex.EncodeToString(result.NonceSum[:]),
		KernelData:                     result.KernelData,
		RecipientPaymentProofSignature: hex.EncodeToString(result.RecipientProofSignature),
	}); err != nil {
		log.Errorf("persisting received payment %d: %v", p.ID, err)
		return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
	}

	responseBytes, err := slate.SerializeSendResponse(result.Response)
	if err != nil {
		log.Errorf("serializing response slate for payment %d: %v", p.ID, err)
		return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
	}

	armoredResponse, err := slatepack.Encode(s.wallet, p.UniqueNumber, senderProofKey, responseBytes)
	if err != nil {
		log.Errorf("encoding response slatepack for payment %d: %v", p.ID, err)
		return nil, &rpcError{Code: codeInternalError, Message: "internal error"}
	}
	return armoredResponse, nil
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, resp rpcResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("marshaling json-rpc response: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		gz.Write(payload)
		return
	}
	w.Write(payload)
}
