package db

import "context"

type Querier interface {
	CountPosts(ctx context.Context, channelID string) (int64, error)
	CreateChannel(ctx context.Context, arg CreateChannelParams) (Channel, error)
	DeletePost(ctx context.Context, arg DeletePostParams) error
	GetChannel(ctx context.Context, id string) (Channel, error)
	GetPost(ctx context.Context, arg GetPostParams) (Post, error)
	ListChannels(ctx context.Context) ([]Channel, error)
	ListLatestPosts(ctx context.Context, arg ListLatestPostsParams) ([]Post, error)
	ListPostsAfter(ctx context.Context, arg ListPostsAfterParams) ([]Post, error)
	ListPostsBefore(ctx context.Context, arg ListPostsBeforeParams) ([]Post, error)
	ListPostsFrom(ctx context.Context, arg ListPostsFromParams) ([]Post, error)
	ListPostsUpdatedSince(ctx context.Context, arg ListPostsUpdatedSinceParams) ([]Post, error)
	SearchPosts(ctx context.Context, arg SearchPostsParams) ([]Post, error)
	UpsertPost(ctx context.Context, arg UpsertPostParams) (Post, error)
}

var _ Querier = (*Queries)(nil)
