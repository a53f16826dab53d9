// Package ballot implements the manager of the ballot of a voter.
//
// The ballot holds the votes a voter stages on several polls before they are
// submitted in a single transaction. It is persisted for each pair of network
// and account so that it survives a restart, and it expires after a day.
//
// A vote is a draft until the ballot is submitted. Once the transaction is
// pending, the votes are stamped with its hash, and the comments attached to
// the votes are posted to the comment service. When the transaction is mined,
// the votes move to the previous ballot and the ballot is emptied.
//
// Every mutation invalidates the signature of the comments and the reference
// to the transaction, so that the comments are signed again before the next
// submission.
//
// Documentation Last Review: 09.10.2026
//
package ballot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	canvass "go.canvass.io/canvass"
	"go.canvass.io/canvass/ballot/types"
	"go.canvass.io/canvass/chain"
	"go.canvass.io/canvass/comments"
	"go.canvass.io/canvass/core"
	"go.canvass.io/canvass/core/txn"
	"go.canvass.io/canvass/wallet"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// DefaultTTL is the lifetime of a persisted ballot.
const DefaultTTL = 24 * time.Hour

const (
	defaultLoadConcurrency = 8
	postTimeout            = 30 * time.Second
)

var (
	// ErrNoProvider is returned when an operation needs a connected wallet.
	ErrNoProvider = xerrors.New("no wallet connected")

	// ErrEmptyBallot is returned when a ballot without any vote is
	// submitted.
	ErrEmptyBallot = xerrors.New("no vote on the ballot")

	// ErrUnsignedComments is returned when a ballot with comments is
	// submitted before the comments are signed.
	ErrUnsignedComments = xerrors.New("comments must be signed before submitting")

	// ErrBallotChanged is returned when the ballot changed while the
	// comments were being signed. The signature is discarded.
	ErrBallotChanged = xerrors.New("ballot changed while signing")

	// ErrClosed is notified when comments cannot be posted because the
	// manager is closed.
	ErrClosed = xerrors.New("ballot manager closed")
)

// defines prometheus metrics
var (
	promSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canvass_ballot_submissions_total",
		Help: "total number of ballot submissions per outcome",
	}, []string{"outcome"})

	promCommentPosts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canvass_ballot_comment_posts_total",
		Help: "total number of comment batches posted per outcome",
	}, []string{"outcome"})

	promDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "canvass_ballot_settled_votes_dropped_total",
		Help: "total number of persisted votes dropped because already mined",
	})
)

func init() {
	canvass.PromCollectors = append(canvass.PromCollectors, promSubmissions,
		promCommentPosts, promDropped)
}

// Storage is the persistent storage of the ballots.
type Storage interface {
	// Set stores the value for the duration.
	Set(key string, value []byte, ttl time.Duration) error

	// Get returns the value if it exists and has not expired.
	Get(key string) ([]byte, bool, error)
}

// Notifier displays the non-fatal failures to the voter.
type Notifier interface {
	Notify(title string, err error)
}

// logNotifier is the default notifier that writes the failures to the log.
//
// - implements ballot.Notifier
type logNotifier struct {
	logger zerolog.Logger
}

// Notify implements ballot.Notifier.
func (n logNotifier) Notify(title string, err error) {
	n.logger.Warn().Err(err).Msg(title)
}

// State is a snapshot of the manager.
type State struct {
	Ballot         types.Ballot
	PreviousBallot types.Ballot
	Signature      string
	TransactionID  txn.ID
}

// Event is the event sent to the observers when the state changes.
type Event struct {
	State State
}

// Option is the type of option to create a manager.
type Option func(*Manager)

// WithClock is an option to set the clock used to timestamp the votes.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithNotifier is an option to set the notifier of the failures. The default
// one writes them to the log.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithLogger is an option to set the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTTL is an option to set the lifetime of the persisted ballots.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLoadConcurrency is an option to set the number of transactions looked
// up in parallel when a persisted ballot is loaded.
func WithLoadConcurrency(n int) Option {
	return func(m *Manager) {
		m.loadConcurrency = n
	}
}

// Manager is the manager of the ballot of the connected voter. It is safe for
// concurrent use.
type Manager struct {
	sync.Mutex

	logger          zerolog.Logger
	storage         Storage
	comments        comments.Service
	tracker         txn.Tracker
	notifier        Notifier
	clock           func() time.Time
	ttl             time.Duration
	loadConcurrency int
	watcher         *core.Watcher

	provider  wallet.Provider
	ballot    types.Ballot
	previous  types.Ballot
	signature string
	txID      txn.ID

	// version is bumped on every change of the ballot so that results
	// computed against an older ballot are discarded.
	version uint64
	// session is bumped on every connection.
	session uint64

	persistLock sync.Mutex
	persisted   map[string]uint64

	closed bool
	posts  sync.WaitGroup
}

// NewManager creates a new manager without any wallet connected.
func NewManager(storage Storage, service comments.Service, tracker txn.Tracker,
	opts ...Option) *Manager {

	logger := canvass.Logger.With().Str("component", "ballot").Logger()

	m := &Manager{
		logger:          logger,
		storage:         storage,
		comments:        service,
		tracker:         tracker,
		clock:           time.Now,
		ttl:             DefaultTTL,
		loadConcurrency: defaultLoadConcurrency,
		watcher:         core.NewWatcher(),
		ballot:          types.Ballot{},
		previous:        types.Ballot{},
		persisted:       make(map[string]uint64),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.notifier == nil {
		m.notifier = logNotifier{logger: m.logger}
	}

	return m
}

// StorageKey returns the key of the persisted ballot of an account.
func StorageKey(network, account string) string {
	return fmt.Sprintf("ballot-%s-%s", network, account)
}

// Connect switches the manager to the wallet. The previous ballot is reset
// and the ballot is loaded from the storage of the network and account of the
// wallet. A nil provider disconnects the manager.
func (m *Manager) Connect(ctx context.Context, provider wallet.Provider) error {
	m.Lock()
	m.session++
	m.version++
	m.provider = provider
	m.ballot = types.Ballot{}
	m.previous = types.Ballot{}
	m.signature = ""
	m.txID = ""
	version := m.version
	m.Unlock()

	m.notify()

	if provider == nil {
		return nil
	}

	key := StorageKey(provider.Network(), provider.Account())

	loaded, err := m.load(ctx, provider, key)
	if err != nil {
		return xerrors.Errorf("couldn't load ballot: %v", err)
	}

	m.Lock()
	if m.version != version {
		m.Unlock()

		m.logger.Debug().Str("key", key).Msg("ballot changed while loading, discarded")

		return nil
	}

	m.version++
	version = m.version
	m.ballot = loaded
	snapshot := m.ballot.Clone()
	m.Unlock()

	m.notify()

	return m.persist(version, key, snapshot)
}

// load reads the persisted ballot and drops the votes which transaction is
// already mined. The lookups of the transactions run in parallel and the
// ballot is returned once all of them are done.
func (m *Manager) load(ctx context.Context, provider wallet.Provider,
	key string) (types.Ballot, error) {

	data, found, err := m.storage.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("couldn't read storage: %v", err)
	}

	if !found {
		return types.Ballot{}, nil
	}

	stored := types.Ballot{}

	err = json.Unmarshal(data, &stored)
	if err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("malformed persisted ballot")

		return types.Ballot{}, nil
	}

	ids := stored.PollIDs()
	settled := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.loadConcurrency)

	for i, id := range ids {
		hash := stored[id].TransactionHash
		if hash == "" {
			continue
		}

		g.Go(func() error {
			receipt, err := provider.GetTransaction(gctx, hash)
			if xerrors.Is(err, chain.ErrNotFound) {
				return nil
			}

			if err != nil {
				// The vote is kept, it is only dropped when it is known to be
				// mined.
				m.logger.Warn().Err(err).Str("hash", hash).Msg("couldn't check transaction")
				return nil
			}

			settled[i] = receipt.Confirmations >= 1

			return nil
		})
	}

	// The goroutines never fail, the error can only come from the context.
	g.Wait()

	err = ctx.Err()
	if err != nil {
		return nil, err
	}

	for i, id := range ids {
		if settled[i] {
			delete(stored, id)
			promDropped.Inc()
		}
	}

	return stored, nil
}

// Add sets the vote of the poll with the fields of the patch. Any previous
// vote of that poll is replaced.
func (m *Manager) Add(id types.PollID, patch types.VotePatch) error {
	return m.mutate(func(b types.Ballot, now int64) {
		vote := patch.Apply(types.Vote{})
		vote.Timestamp = now
		b[id] = vote
	})
}

// Update merges the fields of the patch into the vote of the poll, or creates
// it.
func (m *Manager) Update(id types.PollID, patch types.VotePatch) error {
	return m.mutate(func(b types.Ballot, now int64) {
		vote := patch.Apply(b[id])
		vote.Timestamp = now
		b[id] = vote
	})
}

// Remove removes the vote of the poll.
func (m *Manager) Remove(id types.PollID) error {
	return m.mutate(func(b types.Ballot, now int64) {
		delete(b, id)
	})
}

// mutate applies the change to the ballot, invalidates the signature and the
// transaction reference, and persists the ballot. The ballot is changed even
// if it cannot be persisted.
func (m *Manager) mutate(fn func(b types.Ballot, now int64)) error {
	now := m.clock().UnixMilli()

	m.Lock()
	fn(m.ballot, now)
	m.version++
	m.signature = ""
	m.txID = ""
	version := m.version
	key := m.storageKey()
	snapshot := m.ballot.Clone()
	m.Unlock()

	m.notify()

	return m.persist(version, key, snapshot)
}

// Clear empties the ballot and drops the signature.
func (m *Manager) Clear() error {
	m.Lock()
	m.ballot = types.Ballot{}
	m.signature = ""
	m.version++
	version := m.version
	key := m.storageKey()
	m.Unlock()

	m.notify()

	return m.persist(version, key, types.Ballot{})
}

// ClearTransaction drops the reference to the transaction.
func (m *Manager) ClearTransaction() {
	m.Lock()
	m.txID = ""
	m.Unlock()

	m.notify()
}

// IsOnBallot returns true if the poll has a vote with an option.
func (m *Manager) IsOnBallot(id types.PollID) bool {
	m.Lock()
	defer m.Unlock()

	return m.ballot.IsOnBallot(id)
}

// Count returns the number of entries of the ballot. Entries with only a
// comment are counted.
func (m *Manager) Count() int {
	m.Lock()
	defer m.Unlock()

	return m.ballot.Count()
}

// CommentsCount returns the number of votes with a comment.
func (m *Manager) CommentsCount() int {
	m.Lock()
	defer m.Unlock()

	return m.ballot.CommentsCount()
}

// Ballot returns a copy of the ballot.
func (m *Manager) Ballot() types.Ballot {
	m.Lock()
	defer m.Unlock()

	return m.ballot.Clone()
}

// PreviousBallot returns a copy of the votes of the mined submissions.
func (m *Manager) PreviousBallot() types.Ballot {
	m.Lock()
	defer m.Unlock()

	return m.previous.Clone()
}

// Comments returns the comments of the votes of the ballot.
func (m *Manager) Comments() []types.Comment {
	m.Lock()
	defer m.Unlock()

	return m.ballot.Comments()
}

// Signature returns the signature of the comments, or an empty string.
func (m *Manager) Signature() string {
	m.Lock()
	defer m.Unlock()

	return m.signature
}

// TransactionID returns the reference to the submitted transaction, or an
// empty identifier.
func (m *Manager) TransactionID() txn.ID {
	m.Lock()
	defer m.Unlock()

	return m.txID
}

// Transaction returns the submitted transaction if any.
func (m *Manager) Transaction() (txn.Transaction, bool) {
	id := m.TransactionID()
	if id == "" {
		return txn.Transaction{}, false
	}

	return m.tracker.Get(id)
}

// Subscribe adds the observer to the list notified with an Event after every
// change of the state.
func (m *Manager) Subscribe(observer core.Observer) {
	m.watcher.Add(observer)
}

// Unsubscribe removes the observer.
func (m *Manager) Unsubscribe(observer core.Observer) {
	m.watcher.Remove(observer)
}

// Close waits for the comment posts in progress. Transactions that become
// pending afterwards no longer post their comments.
func (m *Manager) Close() error {
	m.Lock()
	m.closed = true
	m.Unlock()

	m.posts.Wait()

	return nil
}

// SignComments signs the comments of the ballot. A nonce is requested to the
// comment service for the account and it is signed if the ballot has any
// comment. It does nothing when no wallet is connected.
func (m *Manager) SignComments(ctx context.Context) error {
	m.Lock()
	provider := m.provider
	version := m.version
	batch := m.ballot.Comments()
	m.Unlock()

	if provider == nil {
		return nil
	}

	nonce, err := m.comments.Nonce(ctx, strings.ToLower(provider.Account()))
	if err != nil {
		return xerrors.Errorf("couldn't get nonce: %v", err)
	}

	signature := ""

	if len(batch) > 0 {
		signature, err = provider.SignMessage(ctx, []byte(nonce))
		if err != nil {
			return xerrors.Errorf("couldn't sign comments: %v", err)
		}
	}

	m.Lock()
	if m.version != version {
		m.Unlock()
		return ErrBallotChanged
	}

	m.signature = signature
	m.Unlock()

	m.notify()

	return nil
}

// submission is a ballot being submitted.
type submission struct {
	session   uint64
	version   uint64
	provider  wallet.Provider
	delegate  string
	votes     types.Ballot
	comments  []types.Comment
	signature string
}

// Submit sends the votes of the ballot in a single transaction and returns
// its reference. The transaction is sent to the vote delegate contract of the
// account, if any, otherwise to the polling contract. The outcome of the
// transaction is applied to the ballot in the background.
func (m *Manager) Submit(ctx context.Context) (txn.ID, error) {
	m.Lock()

	if m.provider == nil {
		m.Unlock()
		return "", ErrNoProvider
	}

	pollIDs, optionIDs, err := m.ballot.Votes()
	if err != nil {
		m.Unlock()
		return "", xerrors.Errorf("couldn't encode votes: %v", err)
	}

	if len(pollIDs) == 0 {
		m.Unlock()
		return "", ErrEmptyBallot
	}

	sub := &submission{
		session:   m.session,
		version:   m.version,
		provider:  m.provider,
		votes:     types.Ballot{},
		comments:  m.ballot.Comments(),
		signature: m.signature,
	}

	for _, id := range pollIDs {
		sub.votes[id] = m.ballot[id]
	}

	m.Unlock()

	if len(sub.comments) > 0 && sub.signature == "" {
		return "", ErrUnsignedComments
	}

	contract, err := m.contract(sub)
	if err != nil {
		return "", err
	}

	ids := make([]uint64, len(pollIDs))
	for i, id := range pollIDs {
		ids[i] = uint64(id)
	}

	account := sub.provider.Account()

	creator := func(ctx context.Context) (chain.PendingTx, error) {
		return contract.Vote(ctx, account, ids, optionIDs)
	}

	callbacks := txn.Callbacks{
		Pending: func(hash string) { m.onPending(sub, hash) },
		Mined:   func(id txn.ID) { m.onMined(sub, id) },
		Error:   func(id txn.ID, err error) { m.onError(id, err) },
	}

	label := fmt.Sprintf("Voting on %d polls", len(ids))

	id := m.tracker.Track(creator, account, label, callbacks)

	promSubmissions.WithLabelValues("submitted").Inc()

	// A mutation made while the transaction was being tracked has already
	// dropped the reference.
	m.Lock()
	if m.session == sub.session && m.version == sub.version {
		m.txID = id
	}
	m.Unlock()

	m.notify()

	return id, nil
}

func (m *Manager) contract(sub *submission) (chain.VotingContract, error) {
	contracts := sub.provider.Contracts()

	sub.delegate = sub.provider.VoteDelegate()
	if sub.delegate == "" {
		return contracts.Polling(), nil
	}

	contract, err := contracts.VoteDelegate(sub.delegate)
	if err != nil {
		return nil, xerrors.Errorf("couldn't get vote delegate contract: %v", err)
	}

	return contract, nil
}

// onPending stamps the submitted votes still on the ballot with the hash of
// the transaction and posts the comments.
func (m *Manager) onPending(sub *submission, hash string) {
	m.Lock()

	for id, vote := range sub.votes {
		vote.TransactionHash = hash
		sub.votes[id] = vote
	}

	if m.session != sub.session {
		m.Unlock()
		m.logger.Debug().Str("hash", hash).Msg("wallet changed, pending ballot ignored")
		return
	}

	for id := range sub.votes {
		vote, found := m.ballot[id]
		if found && vote.HasOption() {
			vote.TransactionHash = hash
			m.ballot[id] = vote
		}
	}

	m.version++
	version := m.version
	key := m.storageKey()
	snapshot := m.ballot.Clone()
	m.Unlock()

	m.notify()

	err := m.persist(version, key, snapshot)
	if err != nil {
		m.logger.Warn().Err(err).Msg("couldn't persist pending ballot")
	}

	if len(sub.comments) == 0 {
		return
	}

	m.Lock()
	closed := m.closed
	if !closed {
		m.posts.Add(1)
	}
	m.Unlock()

	if closed {
		m.logger.Warn().Str("hash", hash).Msg("manager closed, comments not posted")
		m.notifier.Notify("Unable to store comments", ErrClosed)
		return
	}

	go m.postComments(sub, hash)
}

func (m *Manager) postComments(sub *submission, hash string) {
	defer m.posts.Done()

	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()

	batch := make([]types.Comment, len(sub.comments))
	for i, c := range sub.comments {
		c.TransactionHash = hash
		batch[i] = c
	}

	account := sub.provider.Account()

	voter := account
	if sub.delegate != "" {
		voter = sub.delegate
	}

	req := comments.AddRequest{
		VoterAddress:  voter,
		HotAddress:    account,
		Comments:      batch,
		SignedMessage: sub.signature,
		TxHash:        hash,
	}

	err := m.comments.Add(ctx, sub.provider.Network(), req)
	if err != nil {
		promCommentPosts.WithLabelValues("failed").Inc()

		m.logger.Error().Err(err).Str("hash", hash).Msg("failed to post comments")
		m.notifier.Notify("Unable to store comments", err)

		return
	}

	promCommentPosts.WithLabelValues("posted").Inc()
}

// onMined moves the submitted votes to the previous ballot and empties the
// ballot.
func (m *Manager) onMined(sub *submission, id txn.ID) {
	promSubmissions.WithLabelValues("mined").Inc()

	m.Lock()

	if m.session != sub.session {
		m.Unlock()
		m.logger.Debug().Str("id", string(id)).Msg("wallet changed, mined ballot ignored")
		return
	}

	for pollID, vote := range sub.votes {
		m.previous[pollID] = vote
	}

	m.ballot = types.Ballot{}
	m.signature = ""
	m.version++
	version := m.version
	key := m.storageKey()
	m.Unlock()

	err := m.tracker.SetMessage(id, fmt.Sprintf("Voted on %d polls", len(sub.votes)))
	if err != nil {
		m.logger.Warn().Err(err).Msg("couldn't update transaction message")
	}

	m.notify()

	err = m.persist(version, key, types.Ballot{})
	if err != nil {
		m.logger.Warn().Err(err).Msg("couldn't persist mined ballot")
	}
}

func (m *Manager) onError(id txn.ID, err error) {
	promSubmissions.WithLabelValues("failed").Inc()

	m.logger.Warn().Err(err).Str("id", string(id)).Msg("ballot submission failed")
	m.notifier.Notify("Transaction failed", err)
}

// storageKey returns the key of the connected account, or an empty string.
// The lock must be held.
func (m *Manager) storageKey() string {
	if m.provider == nil {
		return ""
	}

	return StorageKey(m.provider.Network(), m.provider.Account())
}

// persist stores the ballot of the version unless a newer one has already
// been stored for the same key.
func (m *Manager) persist(version uint64, key string, ballot types.Ballot) error {
	if key == "" {
		return nil
	}

	m.persistLock.Lock()
	defer m.persistLock.Unlock()

	if version < m.persisted[key] {
		return nil
	}

	m.persisted[key] = version

	data, err := json.Marshal(ballot)
	if err != nil {
		return xerrors.Errorf("failed to marshal ballot: %v", err)
	}

	err = m.storage.Set(key, data, m.ttl)
	if err != nil {
		return xerrors.Errorf("couldn't persist ballot: %v", err)
	}

	return nil
}

func (m *Manager) notify() {
	m.Lock()
	state := State{
		Ballot:         m.ballot.Clone(),
		PreviousBallot: m.previous.Clone(),
		Signature:      m.signature,
		TransactionID:  m.txID,
	}
	m.Unlock()

	m.watcher.Notify(Event{State: state})
}
