package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/keyset/internal/domain"
	"github.com/rpattn/keyset/internal/repository"
	"github.com/rpattn/keyset/pkg/keyset"
)

// SheetName is the worksheet people are written to.
const SheetName = "People"

var header = []any{
	"ID", "Team", "Name", "DOB", "Rank", "Level", "Height", "Rating",
	"Salary", "Active", "Manager ID", "External ID", "Updated At", "Cursor",
}

type Service struct {
	repo     repository.PersonRepository
	pageSize int
}

type Option func(*Service)

// WithPageSize sets how many people are read per page while walking a full
// export.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

func NewService(repo repository.PersonRepository, opts ...Option) *Service {
	s := &Service{repo: repo, pageSize: 100}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WritePage writes the single page req selects as an xlsx workbook.
func (s *Service) WritePage(ctx context.Context, w io.Writer, req keyset.PageRequest) (int, error) {
	conn, err := s.repo.Page(ctx, req)
	if err != nil {
		return 0, err
	}
	return s.write(w, func(emit func(keyset.Edge[domain.Person]) error) error {
		for _, e := range conn.Edges {
			if err := emit(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteAll walks every person in req's order, starting after req's cursor,
// fetching pageSize people at a time. req.First is ignored.
func (s *Service) WriteAll(ctx context.Context, w io.Writer, req keyset.PageRequest) (int, error) {
	first := s.pageSize
	req.First = &first
	return s.write(w, func(emit func(keyset.Edge[domain.Person]) error) error {
		for {
			conn, err := s.repo.Page(ctx, req)
			if err != nil {
				return err
			}
			for _, e := range conn.Edges {
				if err := emit(e); err != nil {
					return err
				}
			}
			if !conn.PageInfo.HasNextPage {
				return nil
			}
			req.Cursor, req.Kind = *conn.PageInfo.EndCursor, keyset.After
		}
	})
}

func (s *Service) write(w io.Writer, rows func(emit func(keyset.Edge[domain.Person]) error) error) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return 0, fmt.Errorf("failed to open sheet writer: %w", err)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	count := 0
	err = rows(func(e keyset.Edge[domain.Person]) error {
		cell, err := excelize.CoordinatesToCellName(1, count+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, personRow(e)); err != nil {
			return fmt.Errorf("failed to write person %d: %w", e.Node.ID, err)
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	if err := sw.Flush(); err != nil {
		return count, fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return count, fmt.Errorf("failed to write workbook: %w", err)
	}
	return count, nil
}

func personRow(e keyset.Edge[domain.Person]) []any {
	p := e.Node
	row := []any{
		p.ID, p.Team, p.Name, p.DOB, p.Rank, p.Level, p.Height, nil,
		p.Salary.String(), p.Active, nil, p.ExternalID.String(), nil, e.Cursor,
	}
	if p.Rating != nil {
		row[7] = *p.Rating
	}
	if p.ManagerID != nil {
		row[10] = *p.ManagerID
	}
	if p.UpdatedAt != nil {
		row[12] = *p.UpdatedAt
	}
	return row
}
