package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/driftwatch/driftwatch/pkg/cache"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		setup   func(kv *cache.MockKV)
		want    bool
		wantErr bool
	}{
		{
			name: "no mark allows scan",
			url:  "https://example.com/pricing",
			setup: func(kv *cache.MockKV) {
				kv.EXPECT().Exists(gomock.Any(), "scan_rate:example.com").Return(false, nil)
			},
			want: true,
		},
		{
			name: "mark blocks scan",
			url:  "https://example.com",
			setup: func(kv *cache.MockKV) {
				kv.EXPECT().Exists(gomock.Any(), "scan_rate:example.com").Return(true, nil)
			},
			want: false,
		},
		{
			name: "host comparison is case insensitive",
			url:  "https://EXAMPLE.com/About",
			setup: func(kv *cache.MockKV) {
				kv.EXPECT().Exists(gomock.Any(), "scan_rate:example.com").Return(true, nil)
			},
			want: false,
		},
		{
			name: "cache failure fails open",
			url:  "https://example.com",
			setup: func(kv *cache.MockKV) {
				kv.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, errors.New("connection refused"))
			},
			want:    true,
			wantErr: true,
		},
		{
			name:    "url without host is rejected",
			url:     "not a url",
			setup:   func(*cache.MockKV) {},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			kv := cache.NewMockKV(ctrl)
			tt.setup(kv)

			limiter := NewLimiter(kv, time.Minute)

			got, err := limiter.Allowed(context.Background(), tt.url)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	kv := cache.NewMockKV(ctrl)
	kv.EXPECT().Set(gomock.Any(), "scan_rate:example.com", gomock.Any(), 2*time.Minute).Return(nil)

	limiter := NewLimiter(kv, 2*time.Minute)
	require.NoError(t, limiter.Record(context.Background(), "https://example.com/pricing"))
}

func TestDefaultInterval(t *testing.T) {
	limiter := NewLimiter(nil, 0)
	assert.Equal(t, DefaultInterval, limiter.Interval())
}
