package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBallot_IsOnBallot(t *testing.T) {
	opt := NewChoice(1)

	ballot := Ballot{
		1: {Option: &opt},
		2: {Comment: "only a comment"},
	}

	require.True(t, ballot.IsOnBallot(1))
	require.False(t, ballot.IsOnBallot(2))
	require.False(t, ballot.IsOnBallot(3))
}

func TestBallot_Counts(t *testing.T) {
	opt := NewChoice(1)

	ballot := Ballot{
		5: {Option: &opt},
		7: {Option: &opt, Comment: "hi"},
		9: {Comment: "no option"},
	}

	require.Equal(t, 3, ballot.Count())
	require.Equal(t, 1, ballot.CommentsCount())

	comments := ballot.Comments()
	require.Len(t, comments, 1)
	require.Equal(t, PollID(7), comments[0].PollID)
	require.Equal(t, "hi", comments[0].Comment)

	require.Equal(t, []Comment{}, Ballot{}.Comments())
}

func TestBallot_Clone(t *testing.T) {
	ballot := Ballot{1: {Comment: "A"}}

	clone := ballot.Clone()
	clone[2] = Vote{}

	require.Len(t, ballot, 1)
	require.Len(t, clone, 2)
}

func TestBallot_Votes(t *testing.T) {
	single := NewChoice(2)
	ranked := NewRankedChoice(3, 1)

	ballot := Ballot{
		9: {Option: &single},
		4: {Option: &ranked},
		6: {Comment: "skip"},
	}

	pollIDs, optionIDs, err := ballot.Votes()
	require.NoError(t, err)
	require.Equal(t, []PollID{4, 9}, pollIDs)
	require.Equal(t, []*big.Int{big.NewInt(0x0103), big.NewInt(2)}, optionIDs)

	bad := NewRankedChoice()
	ballot[1] = Vote{Option: &bad}

	_, _, err = ballot.Votes()
	require.EqualError(t, err, "poll 1: ranked choice is empty")
}

func TestVotePatch_Apply(t *testing.T) {
	opt := NewChoice(1)
	comment := "hello"

	vote := VotePatch{Option: &opt}.Apply(Vote{Comment: "keep"})
	require.Equal(t, "keep", vote.Comment)
	require.True(t, vote.Option.Equal(opt))

	vote = VotePatch{Comment: &comment}.Apply(vote)
	require.Equal(t, "hello", vote.Comment)
	require.True(t, vote.HasOption())
}

func TestVote_JSON(t *testing.T) {
	var ballot Ballot

	err := json.Unmarshal([]byte(`{
		"5": {"option": "1", "timestamp": 10},
		"7": {"option": [2, 1], "comment": "hi", "timestamp": 11, "transactionHash": "0xab"},
		"9": {"option": null, "comment": "no option", "timestamp": 12}
	}`), &ballot)
	require.NoError(t, err)

	require.True(t, ballot[5].Option.Equal(NewChoice(1)))
	require.True(t, ballot[7].Option.Equal(NewRankedChoice(2, 1)))
	require.Equal(t, "0xab", ballot[7].TransactionHash)
	require.Nil(t, ballot[9].Option)

	data, err := json.Marshal(ballot)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"5": {"option": 1, "timestamp": 10},
		"7": {"option": [2, 1], "comment": "hi", "timestamp": 11, "transactionHash": "0xab"},
		"9": {"comment": "no option", "timestamp": 12}
	}`, string(data))
}
