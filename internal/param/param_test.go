package param

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvFetcherRereads(t *testing.T) {
	ctx := context.Background()
	var f EnvFetcher

	t.Setenv("EDITPROXY_TEST_KEY", "first")
	v, err := f.Fetch(ctx, "EDITPROXY_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	t.Setenv("EDITPROXY_TEST_KEY", " second\n")
	v, err = f.Fetch(ctx, "EDITPROXY_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	v, err = f.Fetch(ctx, "EDITPROXY_TEST_KEY_UNSET")
	require.NoError(t, err)
	assert.Empty(t, v)
}

type fakeSSM struct {
	calls int
	out   *ssm.GetParameterOutput
	err   error
	input *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	f.input = in
	return f.out, f.err
}

func TestParameterStoreFetcher(t *testing.T) {
	client := &fakeSSM{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String("secret")}}}
	f := &ParameterStoreFetcher{client: client}

	for i := 0; i < 2; i++ {
		v, err := f.Fetch(context.Background(), "/editproxy/key")
		require.NoError(t, err)
		assert.Equal(t, "secret", v)
	}
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "/editproxy/key", aws.ToString(client.input.Name))
	assert.True(t, aws.ToBool(client.input.WithDecryption))
}

func TestParameterStoreFetcherNotFound(t *testing.T) {
	f := &ParameterStoreFetcher{client: &fakeSSM{err: &types.ParameterNotFound{}}}
	v, err := f.Fetch(context.Background(), "/missing")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestParameterStoreFetcherError(t *testing.T) {
	f := &ParameterStoreFetcher{client: &fakeSSM{err: errors.New("throttled")}}
	_, err := f.Fetch(context.Background(), "/editproxy/key")
	assert.EqualError(t, err, "throttled")
}
