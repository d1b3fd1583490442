// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

//go:build linux

package sysmon

import "golang.org/x/sys/unix"

// statDir reports the filesystem holding dir. Free counts only blocks
// available to unprivileged users.
func statDir(dir string) (DiskStats, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return DiskStats{}, err
	}
	bsize := uint64(st.Bsize)
	d := DiskStats{
		Path:  dir,
		Total: st.Blocks * bsize,
		Free:  st.Bavail * bsize,
	}
	d.Used = d.Total - st.Bfree*bsize
	return d, nil
}
