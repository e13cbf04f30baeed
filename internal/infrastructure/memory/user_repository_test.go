package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-management-api/internal/domain/entity"
	"github.com/oksasatya/user-management-api/internal/domain/repository"
)

func ptr[T any](v T) *T { return &v }

func TestCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()

	u := &entity.User{Name: "A", Email: "a@b.com", PasswordHash: "h", Age: ptr(30)}
	require.NoError(t, r.Create(ctx, u))
	assert.Equal(t, int64(1), u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byID, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", byID.Email)
	assert.Equal(t, 30, *byID.Age)

	byEmail, err := r.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = r.GetByEmail(ctx, "A@B.com")
	assert.ErrorIs(t, err, repository.ErrNotFound, "emails are matched case-sensitively")
}

func TestReturnedUsersAreCopies(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()
	require.NoError(t, r.Create(ctx, &entity.User{Name: "A", Email: "a@b.com", Age: ptr(1)}))

	got, err := r.GetByID(ctx, 1)
	require.NoError(t, err)
	got.Name = "mutated"
	*got.Age = 99

	again, err := r.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
	assert.Equal(t, 1, *again.Age)
}

func TestCreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()
	require.NoError(t, r.Create(ctx, &entity.User{Name: "A", Email: "a@b.com"}))

	err := r.Create(ctx, &entity.User{Name: "B", Email: "a@b.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestConcurrentCreateSameEmail(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- r.Create(ctx, &entity.User{Name: fmt.Sprint(i), Email: "race@b.com"})
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, ok)
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Create(ctx, &entity.User{Name: fmt.Sprint(i), Email: fmt.Sprintf("u%d@b.com", i)}))
	}

	page, err := r.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].ID)
	assert.Equal(t, int64(3), page[1].ID)

	tail, err := r.List(ctx, 10, 4)
	require.NoError(t, err)
	assert.Len(t, tail, 1)

	empty, err := r.List(ctx, 10, 50)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()
	require.NoError(t, r.Create(ctx, &entity.User{Name: "A", Email: "a@b.com"}))
	require.NoError(t, r.Create(ctx, &entity.User{Name: "B", Email: "b@b.com"}))

	got, err := r.Update(ctx, 1, repository.UserPatch{Name: ptr("AA"), Age: ptr(20)})
	require.NoError(t, err)
	assert.Equal(t, "AA", got.Name)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, 20, *got.Age)

	_, err = r.Update(ctx, 1, repository.UserPatch{Email: ptr("b@b.com")})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	got, err = r.Update(ctx, 1, repository.UserPatch{Email: ptr("new@b.com")})
	require.NoError(t, err)
	assert.Equal(t, "new@b.com", got.Email)

	_, err = r.GetByEmail(ctx, "a@b.com")
	assert.ErrorIs(t, err, repository.ErrNotFound, "old email must be released")
	require.NoError(t, r.Create(ctx, &entity.User{Name: "C", Email: "a@b.com"}))

	_, err = r.Update(ctx, 99, repository.UserPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()
	require.NoError(t, r.Create(ctx, &entity.User{Name: "A", Email: "a@b.com"}))

	require.NoError(t, r.Delete(ctx, 1))
	_, err := r.GetByID(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, r.Delete(ctx, 1), repository.ErrNotFound)

	require.NoError(t, r.Create(ctx, &entity.User{Name: "A2", Email: "a@b.com"}), "email is free after delete")
}
