// Package server implements the comment service over HTTP.
//
// A voter first requests a nonce for the address that will sign the
// comments. The nonce is single-use and expires after a while. The comments
// are then accepted if they come with the signature of the nonce by that
// address.
//
// Documentation Last Review: 01.10.2026
//
package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	canvass "go.canvass.io/canvass"
	"go.canvass.io/canvass/ballot/types"
	"go.canvass.io/canvass/comments"
	"go.canvass.io/canvass/core/store/expiry"
	"go.canvass.io/canvass/core/store/kv"
	"go.canvass.io/canvass/crypto/ed25519"
	"golang.org/x/xerrors"
)

// DefaultNonceTTL is the time a nonce can be used after it is delivered.
const DefaultNonceTTL = 10 * time.Minute

const maxBodySize = 1 << 20

var (
	nonceBucket   = []byte("comments:nonces")
	entriesBucket = []byte("comments:entries")
)

var promComments = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "canvass_comments_requests_total",
	Help: "total number of requests to the comment service per endpoint and outcome",
}, []string{"endpoint", "outcome"})

func init() {
	canvass.PromCollectors = append(canvass.PromCollectors, promComments)
}

// Registerer is the interface of the server the handlers are registered to.
type Registerer interface {
	RegisterHandler(pattern string, handler func(http.ResponseWriter, *http.Request))
}

// Option is the type of option to create a service.
type Option func(*Service)

// WithNonceTTL is an option to set the lifetime of the nonces.
func WithNonceTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.nonceTTL = ttl
	}
}

// WithClock is an option to set the clock of the service.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// Service is the comment service storing the nonces and the comments in a
// key/value database.
type Service struct {
	logger   zerolog.Logger
	db       kv.DB
	nonces   *expiry.Store
	nonceTTL time.Duration
	clock    func() time.Time
	random   func([]byte) (int, error)
}

// NewService creates a new service on top of the database.
func NewService(db kv.DB, opts ...Option) *Service {
	s := &Service{
		logger:   canvass.Logger.With().Str("component", "comments").Logger(),
		db:       db,
		nonceTTL: DefaultNonceTTL,
		clock:    time.Now,
		random:   rand.Read,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.nonces = expiry.NewStore(db, expiry.WithBucket(nonceBucket), expiry.WithClock(s.clock))

	return s
}

// Register registers the handlers of the service.
func (s *Service) Register(r Registerer) {
	r.RegisterHandler("POST "+comments.NoncePath, s.handleNonce)
	r.RegisterHandler("POST "+comments.AddPath, s.handleAdd)
	r.RegisterHandler("GET "+comments.ListPath+"{pollId}", s.handleList)
}

// Nonce returns a new nonce for the address. It replaces any previous one.
func (s *Service) Nonce(address string) (string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return "", xerrors.New("address is required")
	}

	buffer := make([]byte, 16)

	_, err := s.random(buffer)
	if err != nil {
		return "", xerrors.Errorf("failed to generate nonce: %v", err)
	}

	nonce := hex.EncodeToString(buffer)

	value, err := json.Marshal(nonce)
	if err != nil {
		return "", xerrors.Errorf("failed to marshal nonce: %v", err)
	}

	err = s.nonces.Set(address, value, s.nonceTTL)
	if err != nil {
		return "", xerrors.Errorf("couldn't store nonce: %v", err)
	}

	return nonce, nil
}

// Add verifies the signature of the nonce of the hot address and stores the
// comments. The nonce is consumed even if the comments are refused later.
func (s *Service) Add(network string, req comments.AddRequest) error {
	if network == "" {
		return xerrors.New("network is required")
	}

	if len(req.Comments) == 0 {
		return xerrors.New("no comments")
	}

	hot := strings.ToLower(req.HotAddress)

	raw, found, err := s.nonces.Get(hot)
	if err != nil {
		return xerrors.Errorf("couldn't read nonce: %v", err)
	}

	if !found {
		return xerrors.Errorf("no nonce for '%s'", hot)
	}

	var nonce string

	err = json.Unmarshal(raw, &nonce)
	if err != nil {
		return xerrors.Errorf("malformed nonce: %v", err)
	}

	err = s.nonces.Delete(hot)
	if err != nil {
		return xerrors.Errorf("couldn't consume nonce: %v", err)
	}

	err = ed25519.VerifyMessage(hot, []byte(nonce), req.SignedMessage)
	if err != nil {
		return xerrors.Errorf("invalid signature: %v", err)
	}

	voter := strings.ToLower(req.VoterAddress)
	if voter == "" {
		voter = hot
	}

	return s.db.Update(func(tx kv.WritableTx) error {
		bucket, err := tx.GetBucketOrCreate(entriesBucket)
		if err != nil {
			return err
		}

		for _, c := range req.Comments {
			entry := comments.Entry{
				Comment:      c,
				Network:      network,
				VoterAddress: voter,
				HotAddress:   hot,
			}

			if entry.TransactionHash == "" {
				entry.TransactionHash = req.TxHash
			}

			if entry.Timestamp == 0 {
				entry.Timestamp = s.clock().UnixMilli()
			}

			data, err := json.Marshal(entry)
			if err != nil {
				return xerrors.Errorf("failed to marshal comment: %v", err)
			}

			err = bucket.Set(entryKey(network, c.PollID, voter), data)
			if err != nil {
				return xerrors.Errorf("failed to store comment: %v", err)
			}
		}

		return nil
	})
}

// List returns the comments of the poll on the network, one per voter.
func (s *Service) List(network string, pollID types.PollID) ([]comments.Entry, error) {
	entries := []comments.Entry{}

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(entriesBucket)
		if bucket == nil {
			return nil
		}

		return bucket.Scan(entryPrefix(network, pollID), func(k, v []byte) error {
			var entry comments.Entry

			err := json.Unmarshal(v, &entry)
			if err != nil {
				return xerrors.Errorf("malformed comment '%s': %v", k, err)
			}

			entries = append(entries, entry)

			return nil
		})
	})

	if err != nil {
		return nil, xerrors.Errorf("couldn't read comments: %v", err)
	}

	return entries, nil
}

func (s *Service) handleNonce(w http.ResponseWriter, r *http.Request) {
	var req comments.NonceRequest

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req)
	if err != nil {
		s.fail(w, "nonce", http.StatusBadRequest, xerrors.Errorf("malformed request: %v", err))
		return
	}

	nonce, err := s.Nonce(req.Address)
	if err != nil {
		s.fail(w, "nonce", http.StatusBadRequest, err)
		return
	}

	s.reply(w, "nonce", comments.NonceResponse{Nonce: nonce})
}

func (s *Service) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req comments.AddRequest

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req)
	if err != nil {
		s.fail(w, "add", http.StatusBadRequest, xerrors.Errorf("malformed request: %v", err))
		return
	}

	network := r.URL.Query().Get("network")

	err = s.Add(network, req)
	if err != nil {
		s.fail(w, "add", http.StatusUnauthorized, err)
		return
	}

	s.logger.Info().
		Str("network", network).
		Str("voter", req.VoterAddress).
		Int("comments", len(req.Comments)).
		Msg("comments added")

	s.reply(w, "add", struct{}{})
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	pollID, err := strconv.ParseUint(r.PathValue("pollId"), 10, 64)
	if err != nil {
		s.fail(w, "list", http.StatusBadRequest, xerrors.Errorf("invalid poll: %v", err))
		return
	}

	entries, err := s.List(r.URL.Query().Get("network"), types.PollID(pollID))
	if err != nil {
		s.fail(w, "list", http.StatusInternalServerError, err)
		return
	}

	s.reply(w, "list", entries)
}

func (s *Service) reply(w http.ResponseWriter, endpoint string, body interface{}) {
	promComments.WithLabelValues(endpoint, "ok").Inc()

	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}

func (s *Service) fail(w http.ResponseWriter, endpoint string, code int, err error) {
	promComments.WithLabelValues(endpoint, "error").Inc()

	s.logger.Debug().Err(err).Str("endpoint", endpoint).Msg("request refused")

	http.Error(w, err.Error(), code)
}

func entryPrefix(network string, pollID types.PollID) []byte {
	return []byte(fmt.Sprintf("%s:%020d:", network, pollID))
}

func entryKey(network string, pollID types.PollID, voter string) []byte {
	return append(entryPrefix(network, pollID), voter...)
}
