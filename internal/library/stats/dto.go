package stats

import "time"

type BookUsageResponse struct {
	TitleID        uint64    `json:"title_id"`
	Name           string    `json:"name"`
	BorrowCount    int       `json:"borrow_count"`
	AvgLoanDays    *float64  `json:"avg_loan_days"`
	AvailableRatio *float64  `json:"available_ratio"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}

func toBookUsageResponse(r bookUsageRow) BookUsageResponse {
	out := BookUsageResponse{
		TitleID:     r.TitleID,
		Name:        r.Name,
		BorrowCount: r.BorrowCount,
		EvaluatedAt: r.EvaluatedAt,
	}
	if r.AvgLoanDays.Valid {
		v := r.AvgLoanDays.Float64
		out.AvgLoanDays = &v
	}
	if r.AvailableRatio.Valid {
		v := r.AvailableRatio.Float64
		out.AvailableRatio = &v
	}
	return out
}

type UserBorrowResponse struct {
	UserID           uint64  `json:"user_id"`
	UserName         string  `json:"user_name"`
	TotalBorrowed    int     `json:"total_borrowed"`
	OverdueCount     int     `json:"overdue_count"`
	FavoriteCategory *string `json:"favorite_category"`
}

type UserBorrowResult struct {
	Period Period               `json:"period"`
	Items  []UserBorrowResponse `json:"items"`
}

func toUserBorrowResponse(r userBorrowRow) UserBorrowResponse {
	out := UserBorrowResponse{
		UserID:        r.UserID,
		UserName:      r.UserName,
		TotalBorrowed: r.TotalBorrowed,
		OverdueCount:  r.OverdueCount,
	}
	if r.FavoriteCategory.Valid {
		v := r.FavoriteCategory.String
		out.FavoriteCategory = &v
	}
	return out
}

type CategoryResponse struct {
	CategoryID uint64 `json:"category_id"`
	Name       string `json:"name"`
}

type PopularTitle struct {
	TitleID     uint64   `json:"title_id"`
	Name        string   `json:"name"`
	Author      string   `json:"author,omitempty"`
	Categories  []string `json:"categories"`
	BorrowCount int      `json:"borrow_count"`
}

type PopularResult struct {
	Since      time.Time          `json:"since"`
	Overall    []PopularTitle     `json:"overall"`
	Category   *CategoryResponse  `json:"category,omitempty"`
	InCategory []PopularTitle     `json:"in_category"`
	Categories []CategoryResponse `json:"categories"`
}

func toPopular(rows []popularRow, cats map[uint64][]string) []PopularTitle {
	out := make([]PopularTitle, 0, len(rows))
	for _, r := range rows {
		names := cats[r.TitleID]
		if names == nil {
			names = []string{}
		}
		out = append(out, PopularTitle{
			TitleID:     r.TitleID,
			Name:        r.Name,
			Author:      r.Author,
			Categories:  names,
			BorrowCount: r.BorrowCount,
		})
	}
	return out
}
