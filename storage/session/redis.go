package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/emisoft/buzon/core"
	"github.com/emisoft/buzon/core/otp"
)

const keyPrefix = "buzon:session:"

// redisStore shares sessions across instances; entries expire with the
// configured session TTL.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ otp.SessionStore = (*redisStore)(nil) // interface compliance check

func NewRedisClient(conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, conf *core.Config) otp.SessionStore {
	return &redisStore{client: client, ttl: conf.Redis.SessionTTL}
}

func (s *redisStore) Get(ctx context.Context, sid string) (otp.Session, error) {
	data, err := s.client.Get(ctx, keyPrefix+sid).Bytes()
	if err != nil {
		if err == redis.Nil {
			return otp.Session{}, otp.ErrSessionNotFound
		}
		return otp.Session{}, errors.Wrap(err, "getting session")
	}

	var sess otp.Session
	if err = json.Unmarshal(data, &sess); err != nil {
		return otp.Session{}, errors.Wrap(err, "decoding session")
	}
	return sess, nil
}

func (s *redisStore) Save(ctx context.Context, sid string, sess otp.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encoding session")
	}
	if err = s.client.Set(ctx, keyPrefix+sid, data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "saving session")
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sid string) error {
	n, err := s.client.Del(ctx, keyPrefix+sid).Result()
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n == 0 {
		return otp.ErrSessionNotFound
	}
	return nil
}
