package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
	"github.com/fsdevblog/groph-vtu/internal/service/tokens"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
)

const JWTTokenExpire = 1 * time.Hour

const defaultCurrency = "NGN"

type UserService struct {
	uow            uow.UOW
	userRepo       UserRepository
	hasher         PasswordHasher
	jwtTokenSecret []byte
}

func NewUserService(u uow.UOW, hasher PasswordHasher, jwtTokenSecret []byte) (*UserService, error) {
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	return &UserService{
		uow:            u,
		userRepo:       userRepo,
		hasher:         hasher,
		jwtTokenSecret: jwtTokenSecret,
	}, nil
}

type RegisterUserArgs struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Register создает юзера и его кошелёк одной транзакцией БД. После успешного
// создания генерирует jwt token. Возвращает 3 значения: созданный юзер, токен
// и ошибку.
func (s *UserService) Register(ctx context.Context, args RegisterUserArgs) (*domain.User, string, error) {
	password, hashErr := s.hasher.HashPassword(args.Password)
	if hashErr != nil {
		return nil, "", fmt.Errorf("registering user: %s", hashErr.Error())
	}
	var user *domain.User
	var token string
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}
		walletRepo, walletRepoErr := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if walletRepoErr != nil {
			return walletRepoErr //nolint:wrapcheck
		}

		var userErr error
		user, userErr = userRepo.CreateUser(c, repoargs.CreateUser{
			Username: args.Username,
			Email:    args.Email,
			FullName: args.FullName,
			Password: password,
		})
		if userErr != nil {
			return userErr //nolint:wrapcheck
		}

		if _, walletErr := walletRepo.Create(c, user.ID, defaultCurrency); walletErr != nil {
			return walletErr //nolint:wrapcheck
		}

		var tokenErr error
		token, tokenErr = tokens.GenerateUserJWT(user.ID, JWTTokenExpire, s.jwtTokenSecret)
		return tokenErr //nolint:wrapcheck
	})

	if txErr != nil {
		return nil, "", fmt.Errorf("registering user: %w", txErr)
	}
	return user, token, nil
}

// Login проверяет пару логин/пароль и выдаёт jwt token. Неверный пароль и
// отсутствующий юзер неразличимы для вызывающего (ErrPasswordMissMatch не
// возвращается наружу как отдельный кейс).
func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, findErr := s.userRepo.FindUserByUsername(ctx, username)
	if findErr != nil {
		return nil, "", fmt.Errorf("login: %w", findErr)
	}
	if !s.hasher.ComparePassword(password, user.Password) {
		return nil, "", fmt.Errorf("login: %w", domain.ErrPasswordMissMatch)
	}
	token, tokenErr := tokens.GenerateUserJWT(user.ID, JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("login: %s", tokenErr.Error())
	}
	return user, token, nil
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.userRepo.FindUserByID(ctx, id) //nolint:wrapcheck
}
