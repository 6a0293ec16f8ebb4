package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/pribylovaa/go-blog-lab/internal/metrics"
	"github.com/pribylovaa/go-blog-lab/internal/models"
	"github.com/pribylovaa/go-blog-lab/pkg/log"
)

// AddCommentInput — корневой комментарий (ParentID == nil) или ответ на корневой.
type AddCommentInput struct {
	PostID   int64
	UserID   int64
	Content  string
	ParentID *int64
}

// ThreadNode — корневой комментарий с ответами для показа.
// Удалённый корень остаётся в дереве, только если у него есть видимые ответы;
// его текст заменён на models.DeletedPlaceholder.
type ThreadNode struct {
	Comment models.Comment   `json:"comment"`
	Replies []models.Comment `json:"replies"`
}

// AddComment создаёт комментарий и атомарно увеличивает comment_count поста.
//
// Ошибки:
//   - ErrInvalidArgument — пустой текст или неположительные id;
//   - ErrNotFound — пост, активный автор или родитель (на этом же посту, не удалённый) отсутствуют;
//   - ErrInvalidNesting — родитель сам является ответом.
func (s *Service) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	const op = "service/comments/AddComment"

	lg := log.From(ctx).With("op", op, "post_id", in.PostID, "user_id", in.UserID)

	comment, err := models.NewComment(models.Comment{
		PostID:   in.PostID,
		UserID:   in.UserID,
		ParentID: in.ParentID,
		Content:  in.Content,
	})
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	if _, err := s.activeUser(ctx, in.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.PostByID(ctx, in.PostID); err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	if in.ParentID != nil {
		lg = lg.With("parent_id", *in.ParentID)

		parent, err := s.storage.CommentByID(ctx, *in.ParentID)
		if err != nil {
			return nil, mapStorageErr(lg, op, err)
		}

		if parent.PostID != in.PostID || parent.IsDeleted {
			lg.Warn("parent comment is not available on this post")
			return nil, fmt.Errorf("%s: %w: parent comment %d", op, ErrNotFound, parent.ID)
		}

		if !parent.IsTopLevel() {
			metrics.Comments.WithLabelValues("rejected_nesting").Inc()
			lg.Warn("reply to a reply rejected")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidNesting)
		}
	}

	created, err := s.storage.CreateComment(ctx, comment)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	metrics.Comments.WithLabelValues("created").Inc()

	if _, err := s.reloadPost(ctx, op, in.PostID); err != nil {
		lg.Warn("post reload after comment failed", "err", err)
	}

	return created, nil
}

// SoftDeleteComment помечает комментарий удалённым. Повторный вызов — no-op;
// ответы остаются на месте.
func (s *Service) SoftDeleteComment(ctx context.Context, id int64) error {
	const op = "service/comments/SoftDeleteComment"

	lg := log.From(ctx).With("op", op, "comment_id", id)

	if err := validID(lg, op, "comment_id", id); err != nil {
		return err
	}

	comment, err := s.storage.CommentByID(ctx, id)
	if err != nil {
		return mapStorageErr(lg, op, err)
	}

	deleted, err := s.storage.SoftDeleteComment(ctx, id)
	if err != nil {
		return mapStorageErr(lg, op, err)
	}

	if !deleted {
		lg.Debug("comment already deleted")
		return nil
	}

	metrics.Comments.WithLabelValues("deleted").Inc()

	if _, err := s.reloadPost(ctx, op, comment.PostID); err != nil {
		lg.Warn("post reload after delete failed", "err", err)
	}

	return nil
}

// ListComments — видимые комментарии поста в порядке ветки: корень, затем его ответы.
// Удалённые комментарии пропускаются, ответы удалённого корня сохраняют позицию.
func (s *Service) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	const op = "service/comments/ListComments"

	ordered, err := s.orderedComments(ctx, op, postID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Comment, 0, len(ordered))
	for _, c := range ordered {
		if !c.IsDeleted {
			visible = append(visible, c)
		}
	}

	return visible, nil
}

// Thread — представление для показа: корни с вложенными ответами.
func (s *Service) Thread(ctx context.Context, postID int64) ([]ThreadNode, error) {
	const op = "service/comments/Thread"

	ordered, err := s.orderedComments(ctx, op, postID)
	if err != nil {
		return nil, err
	}

	return BuildThread(ordered), nil
}

func (s *Service) orderedComments(ctx context.Context, op string, postID int64) ([]models.Comment, error) {
	lg := log.From(ctx).With("op", op, "post_id", postID)

	if err := validID(lg, op, "post_id", postID); err != nil {
		return nil, err
	}

	if _, err := s.PostByID(ctx, postID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	comments, err := s.storage.ListCommentsByPost(ctx, postID)
	if err != nil {
		return nil, mapStorageErr(lg, op, err)
	}

	return OrderThread(comments), nil
}

// OrderThread упорядочивает плоский список комментариев: корни по (CreatedAt, ID),
// за каждым корнем его ответы по (CreatedAt, ID). Ответы, чей корень отсутствует
// во входных данных, отбрасываются. Входной срез не изменяется.
func OrderThread(comments []models.Comment) []models.Comment {
	roots := make([]models.Comment, 0, len(comments))
	replies := make(map[int64][]models.Comment)

	for _, c := range comments {
		if c.IsTopLevel() {
			roots = append(roots, c)
			continue
		}

		replies[*c.ParentID] = append(replies[*c.ParentID], c)
	}

	sortChronologically(roots)

	out := make([]models.Comment, 0, len(comments))
	for _, root := range roots {
		out = append(out, root)

		children := replies[root.ID]
		sortChronologically(children)
		out = append(out, children...)
	}

	return out
}

// BuildThread группирует упорядоченный список в узлы ветки.
func BuildThread(ordered []models.Comment) []ThreadNode {
	nodes := make([]ThreadNode, 0)
	index := make(map[int64]int)

	for _, c := range ordered {
		if c.IsTopLevel() {
			index[c.ID] = len(nodes)
			nodes = append(nodes, ThreadNode{Comment: c, Replies: []models.Comment{}})
			continue
		}

		i, ok := index[*c.ParentID]
		if !ok || c.IsDeleted {
			continue
		}

		nodes[i].Replies = append(nodes[i].Replies, c)
	}

	out := nodes[:0]
	for _, n := range nodes {
		if n.Comment.IsDeleted {
			if len(n.Replies) == 0 {
				continue
			}

			n.Comment.Content = n.Comment.DisplayContent()
		}

		out = append(out, n)
	}

	return out
}

func sortChronologically(comments []models.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}

		return comments[i].ID < comments[j].ID
	})
}
