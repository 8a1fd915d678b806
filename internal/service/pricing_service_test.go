package service_test

import (
	. "github.com/fsdevblog/groph-vtu/internal/service"
	"testing"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
	"github.com/fsdevblog/groph-vtu/internal/service/mocks"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-vtu/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PricingServiceTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockUOW       *uowmocks.MockUOW
	mockPriceRepo *mocks.MockServicePriceRepository
	service       *PricingService
}

func TestPricingServiceSuite(t *testing.T) {
	suite.Run(t, new(PricingServiceTestSuite))
}

func (s *PricingServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockPriceRepo = mocks.NewMockServicePriceRepository(s.mockCtrl)

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.ServicePriceRepoName)).
		Return(s.mockPriceRepo, nil).AnyTimes()

	var err error
	s.service, err = NewPricingService(s.mockUOW)
	s.Require().NoError(err)
}

func (s *PricingServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

// TestQuote_Rules котировка детерминирована правилом: одинаковый вход даёт
// одинаковую цену продажи.
func (s *PricingServiceTestSuite) TestQuote_Rules() {
	cost := decimal.NewFromInt(100)

	cases := []struct {
		name        string
		rule        *domain.ServicePrice
		ruleErr     error
		cost        decimal.Decimal
		wantSelling decimal.Decimal
		wantMargin  decimal.Decimal
	}{
		{
			name: "fixed margin",
			rule: &domain.ServicePrice{
				ServiceIdentifier: "airtime-mtn",
				MarginType:        domain.MarginTypeFixed,
				MarginValue:       decimal.NewFromInt(10),
			},
			wantSelling: decimal.NewFromInt(110),
			wantMargin:  decimal.NewFromInt(10),
		},
		{
			name: "percentage margin",
			rule: &domain.ServicePrice{
				ServiceIdentifier: "airtime-mtn",
				MarginType:        domain.MarginTypePercentage,
				MarginValue:       decimal.NewFromInt(10),
			},
			wantSelling: decimal.NewFromInt(110),
			wantMargin:  decimal.NewFromInt(10),
		},
		{
			name: "negative fixed margin is a discount",
			rule: &domain.ServicePrice{
				ServiceIdentifier: "airtime-mtn",
				MarginType:        domain.MarginTypeFixed,
				MarginValue:       decimal.NewFromInt(-5),
			},
			wantSelling: decimal.NewFromInt(95),
			wantMargin:  decimal.NewFromInt(-5),
		},
		{
			name: "data bundle with fixed margin",
			rule: &domain.ServicePrice{
				ServiceIdentifier: "airtime-mtn",
				MarginType:        domain.MarginTypeFixed,
				MarginValue:       decimal.NewFromInt(20),
			},
			cost:        decimal.NewFromInt(428),
			wantSelling: decimal.NewFromInt(448),
			wantMargin:  decimal.NewFromInt(20),
		},
		{
			// отсутствие правила это не ошибка, а нулевая маржа
			name:        "no rule",
			ruleErr:     domain.ErrRecordNotFound,
			wantSelling: decimal.NewFromInt(100),
			wantMargin:  decimal.Zero,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			tcost := cost
			if !t.cost.IsZero() {
				tcost = t.cost
			}
			s.mockPriceRepo.EXPECT().
				FindByIdentifier(gomock.Any(), "airtime-mtn").
				Return(t.rule, t.ruleErr)

			quote, err := s.service.Quote(s.T().Context(), "airtime-mtn", tcost, nil)
			s.Require().NoError(err)
			s.True(t.wantSelling.Equal(quote.SellingPrice),
				"selling price %s != %s", quote.SellingPrice, t.wantSelling)
			s.True(t.wantMargin.Equal(quote.Margin))
			s.True(tcost.Equal(quote.CostPrice))
		})
	}
}

// TestQuote_Override override вытесняет правило, репозиторий не вызывается.
func (s *PricingServiceTestSuite) TestQuote_Override() {
	cost := decimal.NewFromInt(100)
	override := decimal.NewFromInt(90)

	quote, err := s.service.Quote(s.T().Context(), "data-glo", cost, &override)
	s.Require().NoError(err)

	// маржа может быть отрицательной (скидка)
	s.True(decimal.NewFromInt(-10).Equal(quote.Margin))
	s.True(override.Equal(quote.SellingPrice))
}

// TestQuote_NonPositiveSellingPrice цена продажи обязана быть положительной.
func (s *PricingServiceTestSuite) TestQuote_NonPositiveSellingPrice() {
	cost := decimal.NewFromInt(100)

	s.mockPriceRepo.EXPECT().
		FindByIdentifier(gomock.Any(), "cable-dstv").
		Return(&domain.ServicePrice{
			ServiceIdentifier: "cable-dstv",
			MarginType:        domain.MarginTypeFixed,
			MarginValue:       decimal.NewFromInt(-150),
		}, nil)

	_, err := s.service.Quote(s.T().Context(), "cable-dstv", cost, nil)

	var confErr *domain.ConfigurationError
	s.Require().ErrorAs(err, &confErr)
	s.Equal("cable-dstv", confErr.ServiceIdentifier)
}

// TestQuote_PercentageRounding процентная маржа округляется до копеек.
func (s *PricingServiceTestSuite) TestQuote_PercentageRounding() {
	cost := decimal.NewFromFloat(33.33)

	s.mockPriceRepo.EXPECT().
		FindByIdentifier(gomock.Any(), "airtime-glo").
		Return(&domain.ServicePrice{
			ServiceIdentifier: "airtime-glo",
			MarginType:        domain.MarginTypePercentage,
			MarginValue:       decimal.NewFromInt(3),
		}, nil)

	quote, err := s.service.Quote(s.T().Context(), "airtime-glo", cost, nil)
	s.Require().NoError(err)
	s.True(decimal.NewFromFloat(1).Equal(quote.Margin), "margin %s", quote.Margin)
}
