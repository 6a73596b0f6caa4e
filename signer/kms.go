package signer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// Decrypter turns an encrypted key blob back into raw key bytes.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// KMSClient wraps the AWS KMS SDK to perform decryption operations.
type KMSClient struct {
	kms *kms.Client
}

var _ Decrypter = (*KMSClient)(nil)

// NewKMSClient creates a KMS client. If endpoint is non-empty, the client
// targets that endpoint with static test credentials (LocalStack).
// Otherwise it uses the AWS default credential chain.
func NewKMSClient(ctx context.Context, region, endpoint string) (*KMSClient, error) {
	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(region))

	if endpoint != "" {
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("kms: load aws config: %w", err)
	}

	var kmsOpts []func(*kms.Options)
	if endpoint != "" {
		kmsOpts = append(kmsOpts, func(o *kms.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return &KMSClient{
		kms: kms.NewFromConfig(cfg, kmsOpts...),
	}, nil
}

func (c *KMSClient) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	out, err := c.kms.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: ciphertext,
	})
	if err != nil {
		return nil, fmt.Errorf("kms: decrypt: %w", err)
	}
	return out.Plaintext, nil
}

// NewFromKMS decrypts an encrypted private key and seals it in a
// PrivateKeySigner. The plaintext never outlives this call.
func NewFromKMS(ctx context.Context, d Decrypter, ciphertext []byte) (*PrivateKeySigner, error) {
	plaintext, err := d.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, err
	}

	return NewPrivateKeySigner(plaintext)
}
