// Package types defines the data model of a ballot: the vote drafts staged by
// a voter, keyed by poll, and the comment records derived from them.
//
// Documentation Last Review: 29.09.2026
//
package types

import (
	"math/big"
	"sort"

	"golang.org/x/xerrors"
)

// PollID is the identifier of a governance poll.
type PollID uint64

// Vote is the draft of a vote for a single poll. A vote without an option is
// a comment-only entry and is not counted as a vote.
type Vote struct {
	Option          *Option `json:"option,omitempty"`
	Comment         string  `json:"comment,omitempty"`
	Timestamp       int64   `json:"timestamp"`
	TransactionHash string  `json:"transactionHash,omitempty"`
}

// HasOption returns true if the option of the vote is set.
func (v Vote) HasOption() bool {
	return v.Option != nil
}

// VotePatch is a partial vote. Only the fields that are set are applied.
type VotePatch struct {
	Option  *Option
	Comment *string
}

// Apply returns the vote with the fields of the patch applied.
func (p VotePatch) Apply(vote Vote) Vote {
	if p.Option != nil {
		opt := *p.Option
		vote.Option = &opt
	}

	if p.Comment != nil {
		vote.Comment = *p.Comment
	}

	return vote
}

// Comment is a comment attached to a vote, as sent to the comment service.
type Comment struct {
	PollID          PollID  `json:"pollId"`
	Comment         string  `json:"comment"`
	Option          *Option `json:"option,omitempty"`
	Timestamp       int64   `json:"timestamp,omitempty"`
	TransactionHash string  `json:"transactionHash,omitempty"`
}

// Ballot is the set of vote drafts of a voter.
type Ballot map[PollID]Vote

// Clone returns a copy of the ballot.
func (b Ballot) Clone() Ballot {
	clone := make(Ballot, len(b))
	for id, vote := range b {
		clone[id] = vote
	}

	return clone
}

// IsOnBallot returns true if the poll has an entry with an option.
func (b Ballot) IsOnBallot(id PollID) bool {
	vote, found := b[id]

	return found && vote.HasOption()
}

// Count returns the number of entries, including the comment-only ones.
func (b Ballot) Count() int {
	return len(b)
}

// CommentsCount returns the number of votes with a non-empty comment.
func (b Ballot) CommentsCount() int {
	return len(b.Comments())
}

// PollIDs returns the sorted list of polls present in the ballot.
func (b Ballot) PollIDs() []PollID {
	ids := make([]PollID, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Comments returns the comments of the votes on the ballot, sorted by poll.
// Entries without an option are ignored.
func (b Ballot) Comments() []Comment {
	comments := []Comment{}

	for _, id := range b.PollIDs() {
		vote := b[id]
		if !vote.HasOption() || vote.Comment == "" {
			continue
		}

		comments = append(comments, Comment{
			PollID:          id,
			Comment:         vote.Comment,
			Option:          vote.Option,
			Timestamp:       vote.Timestamp,
			TransactionHash: vote.TransactionHash,
		})
	}

	return comments
}

// Votes returns the parallel lists of polls and encoded options of the votes
// on the ballot, sorted by poll.
func (b Ballot) Votes() ([]PollID, []*big.Int, error) {
	pollIDs := []PollID{}
	optionIDs := []*big.Int{}

	for _, id := range b.PollIDs() {
		vote := b[id]
		if !vote.HasOption() {
			continue
		}

		encoded, err := vote.Option.Encode()
		if err != nil {
			return nil, nil, xerrors.Errorf("poll %d: %v", id, err)
		}

		pollIDs = append(pollIDs, id)
		optionIDs = append(optionIDs, encoded)
	}

	return pollIDs, optionIDs, nil
}
